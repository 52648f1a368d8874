// Package errors provides structured error handling for the scitune
// hyperparameter search library. Error types carry enough context to be
// logged as structured events, and constructors attach stack traces via
// cockroachdb/errors.
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Warning handling
//
// ===========================================================================

var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("scitune-warning: %v\n", w)
	}
)

// SetWarningHandler sets the handler invoked for non-fatal conditions such as
// a surrogate fit falling back to random sampling or an early-stopped run.
//
// Example:
//
//	errors.SetWarningHandler(func(w error) {
//	    // drop warnings
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// Warn raises a warning through the installed handler.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	Warning types
//
// ===========================================================================

// SurrogateFallbackWarning is raised when a round's surrogate model could not
// be fit and the driver fell back to a random draw from the parameter space.
type SurrogateFallbackWarning struct {
	Round int
	Cause error
}

func (w *SurrogateFallbackWarning) Error() string {
	return fmt.Sprintf("surrogate fit failed at round %d, falling back to random proposal: %v", w.Round, w.Cause)
}

// MarshalZerologObject adds structured warning fields to a zerolog event.
func (w *SurrogateFallbackWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Int("round", w.Round).
		AnErr("cause", w.Cause).
		Str("type", "SurrogateFallbackWarning")
}

// NewSurrogateFallbackWarning creates a new SurrogateFallbackWarning.
func NewSurrogateFallbackWarning(round int, cause error) *SurrogateFallbackWarning {
	return &SurrogateFallbackWarning{Round: round, Cause: cause}
}

// EarlyStopWarning is raised when a search run stops before exhausting its
// iteration budget because the patience window passed without improvement.
type EarlyStopWarning struct {
	Round    int
	Patience int
	Best     float64
}

func (w *EarlyStopWarning) Error() string {
	return fmt.Sprintf("search stopped early at round %d: no improvement over best %.6g for %d rounds", w.Round, w.Best, w.Patience)
}

// MarshalZerologObject adds structured warning fields to a zerolog event.
func (w *EarlyStopWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Int("round", w.Round).
		Int("patience", w.Patience).
		Float64("best", w.Best).
		Str("type", "EarlyStopWarning")
}

// NewEarlyStopWarning creates a new EarlyStopWarning.
func NewEarlyStopWarning(round, patience int, best float64) *EarlyStopWarning {
	return &EarlyStopWarning{Round: round, Patience: patience, Best: best}
}

// ===========================================================================
//
//	Structured error types
//
// ===========================================================================

// InvalidArgumentError reports a structurally invalid input: a malformed fold
// count, an empty parameter space, a zero iteration budget. It is fatal at
// the start of a run; nothing is evaluated.
type InvalidArgumentError struct {
	Op     string
	Arg    string
	Reason string
	Value  interface{}
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("scitune: %s: invalid argument '%s': %s (got: %v)", e.Op, e.Arg, e.Reason, e.Value)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *InvalidArgumentError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("argument", e.Arg).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "InvalidArgumentError")
}

// NewInvalidArgumentError creates a new InvalidArgumentError with a stack trace.
func NewInvalidArgumentError(op, arg, reason string, value interface{}) error {
	err := &InvalidArgumentError{Op: op, Arg: arg, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// EvaluationError reports that one specific configuration could not be
// scored. It is non-fatal to the run: drivers record it as a failed trial
// and continue with the remaining candidates.
type EvaluationError struct {
	// Config is the canonical key of the offending configuration.
	Config string
	Cause  error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("scitune: evaluation failed for configuration %s: %v", e.Config, e.Cause)
}

func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *EvaluationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("configuration", e.Config).
		AnErr("cause", e.Cause).
		Str("type", "EvaluationError")
}

// NewEvaluationError creates a new EvaluationError with a stack trace.
func NewEvaluationError(configKey string, cause error) error {
	err := &EvaluationError{Config: configKey, Cause: cause}
	return errors.WithStack(err)
}

// SurrogateFitError reports that the surrogate model could not be fit on the
// observed trials, e.g. because the encoded configurations are degenerate.
// It is fatal to a single proposal round only, never to the whole run.
type SurrogateFitError struct {
	Observations int
	Reason       string
}

func (e *SurrogateFitError) Error() string {
	return fmt.Sprintf("scitune: surrogate fit failed on %d observations: %s", e.Observations, e.Reason)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *SurrogateFitError) MarshalZerologObject(event *zerolog.Event) {
	event.Int("observations", e.Observations).
		Str("reason", e.Reason).
		Str("type", "SurrogateFitError")
}

// NewSurrogateFitError creates a new SurrogateFitError with a stack trace.
func NewSurrogateFitError(observations int, reason string) error {
	err := &SurrogateFitError{Observations: observations, Reason: reason}
	return errors.WithStack(err)
}

// NotFittedError reports use of a model that requires fitting first, such as
// predicting from a surrogate with no observations.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("scitune: %s: not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a new NotFittedError with a stack trace.
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError reports a mismatch between expected and actual data
// dimensions, e.g. prediction and target vectors of different lengths.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("scitune: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError creates a new DimensionError with a stack trace.
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValueError reports an argument whose value is malformed or out of range.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("scitune: %s: %s", e.Op, e.Message)
}

// NewValueError creates a new ValueError with a stack trace.
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates an error with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Sentinel errors
//
// ===========================================================================

var (
	// ErrEmptyData is returned when an empty dataset or fold set is supplied.
	ErrEmptyData = New("empty data")

	// ErrRunCancelled is returned when a run is cancelled before completing.
	ErrRunCancelled = New("run cancelled")

	// ErrRunNotFound is returned when a persisted run ID does not exist.
	ErrRunNotFound = New("run not found")
)
