package submission

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"tit-pharmacy/internal/catalog"
	"tit-pharmacy/internal/domain"

	"go.uber.org/zap"
)

// Logical views the form can navigate to
const (
	ListingPath = "/"
	AddPath     = "/add"
)

const (
	// SuccessMessage is shown after a product has been committed
	SuccessMessage = "Sản phẩm đã được thêm thành công!"

	// DefaultRedirectDelay is how long the success message stays before the form leaves
	DefaultRedirectDelay = 3 * time.Second
)

var (
	ErrFormClosed = errors.New("form is closed")
)

// Phase is the state of the current submission attempt
type Phase int

const (
	PhaseEditing Phase = iota
	PhaseRejected
	PhaseCommitted
)

func (p Phase) String() string {
	switch p {
	case PhaseRejected:
		return "rejected"
	case PhaseCommitted:
		return "committed"
	default:
		return "editing"
	}
}

// Navigator moves the user to another view
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Stopper cancels a scheduled callback
type Stopper interface {
	Stop() bool
}

// Scheduler runs f once after d
type Scheduler func(d time.Duration, f func()) Stopper

func timeScheduler(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// FormState is a copy of what the add view renders
type FormState struct {
	Draft      Draft
	Errors     FieldErrors
	Success    string
	Categories []string
	Phase      Phase
	Closed     bool
	Last       *domain.Product
}

// Form is one open add-product view. It keeps the draft and its field errors,
// raises the success message on commit and, after a delay, clears it and
// navigates back to the listing. Once closed, nothing it does reaches the
// navigator again.
type Form struct {
	mu sync.Mutex

	pipeline  *Pipeline
	navigator Navigator
	delay     time.Duration
	schedule  Scheduler
	logger    *zap.Logger

	draft      Draft
	errors     FieldErrors
	success    string
	categories []string
	phase      Phase
	last       *domain.Product

	timer      Stopper
	generation int
	closed     bool
}

// FormOption configures a Form
type FormOption func(*Form)

// WithRedirectDelay sets the time between commit and navigation
func WithRedirectDelay(d time.Duration) FormOption {
	return func(f *Form) {
		f.delay = d
	}
}

// WithScheduler replaces time.AfterFunc
func WithScheduler(s Scheduler) FormOption {
	return func(f *Form) {
		f.schedule = s
	}
}

func WithFormLogger(l *zap.Logger) FormOption {
	return func(f *Form) {
		f.logger = l
	}
}

// NewForm creates a form in the editing phase with an empty draft
func NewForm(pipeline *Pipeline, navigator Navigator, opts ...FormOption) *Form {
	f := &Form{
		pipeline:   pipeline,
		navigator:  navigator,
		delay:      DefaultRedirectDelay,
		schedule:   timeScheduler,
		logger:     zap.NewNop(),
		errors:     FieldErrors{},
		categories: []string{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Open loads the category options from src. A failed fetch leaves the
// options empty; the category rule still requires a value.
func (f *Form) Open(ctx context.Context, src catalog.Source) {
	categories := catalog.FetchCategories(ctx, src, f.logger)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.categories = categories
}

// Edit replaces the draft while the user is typing
func (f *Form) Edit(d Draft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFormClosed
	}
	f.draft = d
	f.phase = PhaseEditing
	return nil
}

// Submit runs the draft through the pipeline. On rejection the draft is kept
// and the field errors are exposed; on commit the draft is reset, the success
// message is raised and the delayed redirect is (re)scheduled.
func (f *Form) Submit(ctx context.Context, d Draft) (domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return domain.Product{}, ErrFormClosed
	}

	f.draft = d
	product, err := f.pipeline.Submit(ctx, d)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			f.errors = maps.Clone(verr.Fields)
		}
		f.phase = PhaseRejected
		return domain.Product{}, err
	}

	f.draft = Draft{}
	f.errors = FieldErrors{}
	f.success = SuccessMessage
	f.phase = PhaseCommitted
	f.last = &product
	f.scheduleRedirect()

	return product, nil
}

// scheduleRedirect must be called with f.mu held
func (f *Form) scheduleRedirect() {
	if f.timer != nil {
		f.timer.Stop()
	}
	f.generation++
	gen := f.generation
	f.timer = f.schedule(f.delay, func() { f.redirect(gen) })
}

func (f *Form) redirect(gen int) {
	f.mu.Lock()
	if f.closed || gen != f.generation {
		f.mu.Unlock()
		return
	}
	f.success = ""
	f.closed = true
	f.timer = nil
	f.mu.Unlock()

	f.logger.Debug("Redirecting after submission", zap.String("path", ListingPath))
	f.navigator.Navigate(ListingPath)
}

// Cancel leaves the form for the listing without submitting
func (f *Form) Cancel() {
	f.mu.Lock()
	closed := f.close()
	f.mu.Unlock()

	if closed {
		f.navigator.Navigate(ListingPath)
	}
}

// Close discards the form and stops a pending redirect
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.close()
}

// close must be called with f.mu held; it reports whether the form was open
func (f *Form) close() bool {
	if f.closed {
		return false
	}
	f.closed = true
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	return true
}

// State returns a copy of the form state
func (f *Form) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()

	return FormState{
		Draft:      f.draft,
		Errors:     maps.Clone(f.errors),
		Success:    f.success,
		Categories: slices.Clone(f.categories),
		Phase:      f.phase,
		Closed:     f.closed,
		Last:       f.last,
	}
}
