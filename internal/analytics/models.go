// Package analytics implements the weather analytics view: the query controller
// that owns the filter and fetch lifecycle, and the shaping of analytics results
// into summary cards, chart point sequences and CSV exports.
package analytics

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Analytics errors.
var (
	ErrInvalidFilter = errors.New("invalid filter")
	ErrNoResult      = errors.New("no analytics result loaded")
)

// DateLayout is the ISO calendar date layout accepted for filter dates.
const DateLayout = "2006-01-02"

// Filter constrains an analytics query. Empty fields are unconstrained.
type Filter struct {
	City  string `json:"city"`
	Start string `json:"start" validate:"omitempty,datetime=2006-01-02"`
	End   string `json:"end" validate:"omitempty,datetime=2006-01-02"`
}

// IsEmpty reports whether no constraint is set.
func (f Filter) IsEmpty() bool {
	return f.City == "" && f.Start == "" && f.End == ""
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func filterValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks that Start and End are ISO calendar dates when set.
// Whether Start precedes End is left to the analytics service.
func (f Filter) Validate() error {
	err := filterValidator().Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: %s must be a date in YYYY-MM-DD format, got %q",
			ErrInvalidFilter, jsonFieldName(fe.Field()), fe.Value())
	}
	return fmt.Errorf("%w: %v", ErrInvalidFilter, err)
}

// FieldErrors returns per-field validation failures, keyed by JSON field name.
func (f Filter) FieldErrors() map[string]string {
	err := filterValidator().Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[jsonFieldName(fe.Field())] = "must be a date in YYYY-MM-DD format"
	}
	return out
}

func jsonFieldName(field string) string {
	switch field {
	case "Start":
		return "start"
	case "End":
		return "end"
	default:
		return "city"
	}
}

// Result is the analytics payload returned by the analytics endpoint.
// Scalars are nil when the service had no data for them.
type Result struct {
	AverageTemperature   *float64 `json:"average_temperature"`
	MaxTemperature       *float64 `json:"max_temperature"`
	MinTemperature       *float64 `json:"min_temperature"`
	AverageWindSpeed     *float64 `json:"average_wind_speed"`
	MaxWindSpeed         *float64 `json:"max_wind_speed"`
	AverageWindGust      *float64 `json:"average_wind_gust"`
	MaxWindGust          *float64 `json:"max_wind_gust"`
	AverageWindDirection *float64 `json:"average_wind_direction"`

	MonthlyTemperatureTrend   TrendMap `json:"monthly_temperature_trend"`
	MonthlyWindSpeedTrend     TrendMap `json:"monthly_wind_speed_trend"`
	MonthlyWindGustTrend      TrendMap `json:"monthly_wind_gust_trend"`
	MonthlyWindDirectionTrend TrendMap `json:"monthly_wind_direction_trend"`
}

// ChartPoint is a display-ready entry of a trend chart.
type ChartPoint struct {
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

// Phase is the query lifecycle phase.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

// ErrorKind classifies why a query failed.
type ErrorKind string

const (
	// KindTransport means the request could not complete or the body could not be parsed.
	KindTransport ErrorKind = "transport"
	// KindProtocol means the endpoint answered with a non-2xx status.
	KindProtocol ErrorKind = "protocol"
	// KindApplication means a 2xx body carried an "error" field.
	KindApplication ErrorKind = "application"
)

// FallbackErrorMessage is shown when a failure carries no message of its own.
const FallbackErrorMessage = "Failed to fetch analytics"

// BackendErrorPrefix prefixes the body of non-2xx responses.
const BackendErrorPrefix = "Backend error:\n"

// QueryError is returned by a Fetcher when a query fails.
// Message is exactly what the user is shown.
type QueryError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *QueryError) Error() string {
	return e.Message
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps a transport or parse failure.
func NewTransportError(err error) *QueryError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if msg == "" {
		msg = FallbackErrorMessage
	}
	return &QueryError{Kind: KindTransport, Message: msg, Err: err}
}

// NewProtocolError builds the error for a non-2xx response body.
func NewProtocolError(body string) *QueryError {
	return &QueryError{Kind: KindProtocol, Message: BackendErrorPrefix + body}
}

// NewApplicationError builds the error for an "error" field in a 2xx body.
func NewApplicationError(msg string) *QueryError {
	return &QueryError{Kind: KindApplication, Message: msg}
}

// errorMessage maps any fetch failure to the message shown to the user.
func errorMessage(err error) string {
	var qerr *QueryError
	if errors.As(err, &qerr) && qerr.Message != "" {
		return qerr.Message
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return FallbackErrorMessage
}

// errorKind returns the kind of a fetch failure, defaulting to transport.
func errorKind(err error) ErrorKind {
	var qerr *QueryError
	if errors.As(err, &qerr) && qerr.Kind != "" {
		return qerr.Kind
	}
	return KindTransport
}
