package transport

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"time"

	"tit-pharmacy/internal/catalog"
	"tit-pharmacy/internal/domain"
	"tit-pharmacy/internal/middleware"
	"tit-pharmacy/internal/query"
	"tit-pharmacy/internal/submission"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// DisplayDateLayout is how dates are shown in the listing
const DisplayDateLayout = "02/01/2006"

type listingRow struct {
	STT       int
	Code      string
	Name      string
	Category  string
	Quantity  int
	Price     string
	DateAdded string
}

type listingView struct {
	Title      string
	Search     string
	Category   string
	Categories []string
	Rows       []listingRow
}

type addView struct {
	Title      string
	Session    string
	Draft      submission.Draft
	Errors     submission.FieldErrors
	Success    string
	Categories []string
}

// ViewHandler renders the listing and add-product pages
type ViewHandler struct {
	store         *catalog.Store
	engine        *query.Engine
	sessions      *submission.Sessions
	printer       *message.Printer
	redirectDelay time.Duration
	logger        *zap.Logger
}

// NewViewHandler creates a new ViewHandler. redirectDelay is the delay the
// forms were configured with; the add page refreshes on that cadence while a
// success message is up.
func NewViewHandler(store *catalog.Store, engine *query.Engine, sessions *submission.Sessions, redirectDelay time.Duration, logger *zap.Logger) *ViewHandler {
	if redirectDelay <= 0 {
		redirectDelay = submission.DefaultRedirectDelay
	}
	return &ViewHandler{
		store:         store,
		engine:        engine,
		sessions:      sessions,
		printer:       message.NewPrinter(engine.Locale),
		redirectDelay: redirectDelay,
		logger:        logger,
	}
}

// RegisterRoutes registers the HTML pages. limit wraps the submission route.
func (h *ViewHandler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Get(submission.ListingPath, h.Listing)
	r.Get(submission.AddPath, h.AddForm)
	r.With(limit).Post(submission.AddPath, h.SubmitForm)
	r.Post(submission.AddPath+"/cancel", h.CancelForm)
}

// Listing renders the filtered, sorted product table. Any search term is
// accepted; one that matches nothing shows the empty table.
func (h *ViewHandler) Listing(w http.ResponseWriter, r *http.Request) {
	params := listingQueryFrom(r)

	snap := h.store.Snapshot()
	products := h.engine.Derive(snap.Products, query.Filter{
		Search:   params.Search,
		Category: params.Category,
	})

	rows := make([]listingRow, len(products))
	for i, p := range products {
		rows[i] = listingRow{
			STT:       i + 1,
			Code:      p.Code,
			Name:      p.Name,
			Category:  p.Category,
			Quantity:  p.Quantity,
			Price:     h.formatPrice(p.Price),
			DateAdded: formatDate(p.DateAdded),
		}
	}

	h.render(w, http.StatusOK, "listing", listingView{
		Title:      "Danh sách sản phẩm",
		Search:     params.Search,
		Category:   params.Category,
		Categories: snap.Categories,
		Rows:       rows,
	})
}

// AddForm opens a form session, or shows an existing one. A session whose
// redirect has fired sends the browser on to its destination.
func (h *ViewHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	id, form, done := h.resolveSession(w, r, r.URL.Query().Get("session"))
	if done {
		return
	}
	h.renderForm(w, id, form)
}

// SubmitForm runs the posted draft through the session's form
func (h *ViewHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	id, form, done := h.resolveSession(w, r, r.PostForm.Get("session"))
	if done {
		return
	}

	_, err := form.Submit(r.Context(), draftFromForm(r))
	switch {
	case err == nil, errors.Is(err, submission.ErrValidation):
		h.renderForm(w, id, form)
	case errors.Is(err, submission.ErrFormClosed):
		// The redirect fired between lookup and submit
		h.sessions.Close(id)
		http.Redirect(w, r, submission.ListingPath, http.StatusSeeOther)
	default:
		h.logger.Error("Form submission failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to add product")
	}
}

// CancelForm leaves the add page without submitting
func (h *ViewHandler) CancelForm(w http.ResponseWriter, r *http.Request) {
	destination := submission.ListingPath

	if err := r.ParseForm(); err == nil {
		if id, err := uuid.Parse(r.PostForm.Get("session")); err == nil {
			if form, dest, ok := h.sessions.Get(id); ok {
				if form != nil {
					form.Cancel()
					_, dest, _ = h.sessions.Get(id)
				}
				if dest != "" {
					destination = dest
				}
				h.sessions.Close(id)
			}
		}
	}

	http.Redirect(w, r, destination, http.StatusSeeOther)
}

// resolveSession finds the form for raw or opens a new one. It reports done
// when it has already answered with a redirect.
func (h *ViewHandler) resolveSession(w http.ResponseWriter, r *http.Request, raw string) (uuid.UUID, *submission.Form, bool) {
	if id, err := uuid.Parse(raw); err == nil {
		form, destination, ok := h.sessions.Get(id)
		switch {
		case ok && destination != "":
			http.Redirect(w, r, destination, http.StatusSeeOther)
			return uuid.Nil, nil, true
		case ok:
			return id, form, false
		}
		h.logger.Debug("Unknown form session, opening a new one", zap.String("session", raw))
	}

	id, form := h.sessions.Open(r.Context())
	return id, form, false
}

func (h *ViewHandler) renderForm(w http.ResponseWriter, id uuid.UUID, form *submission.Form) {
	state := form.State()

	if state.Success != "" {
		// Come back once the redirect is due
		secs := int(math.Ceil(h.redirectDelay.Seconds()))
		w.Header().Set("Refresh", fmt.Sprintf("%d; url=%s?session=%s", secs, submission.AddPath, id))
	}

	h.render(w, http.StatusOK, "add", addView{
		Title:      "Thêm sản phẩm",
		Session:    id.String(),
		Draft:      state.Draft,
		Errors:     state.Errors,
		Success:    state.Success,
		Categories: state.Categories,
	})
}

func (h *ViewHandler) render(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error("Failed to render page", zap.String("template", name), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to render page")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (h *ViewHandler) formatPrice(p decimal.Decimal) string {
	return h.printer.Sprint(number.Decimal(p.InexactFloat64(), number.MaxFractionDigits(2)))
}

func formatDate(d domain.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DisplayDateLayout)
}

func draftFromForm(r *http.Request) submission.Draft {
	return submission.Draft{
		Code:        r.PostForm.Get(submission.FieldCode),
		Name:        r.PostForm.Get(submission.FieldName),
		Description: r.PostForm.Get(submission.FieldDescription),
		Category:    r.PostForm.Get(submission.FieldCategory),
		Price:       r.PostForm.Get(submission.FieldPrice),
		Quantity:    r.PostForm.Get(submission.FieldQuantity),
		DateAdded:   r.PostForm.Get(submission.FieldDateAdded),
	}
}
