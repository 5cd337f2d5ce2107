// ABOUTME: Resolves an OCR handle to a prospect and canvassing cycle
// ABOUTME: Cascades exact, prefix, cross-reference, and fuzzy lookups and enforces cycle rules
package resolve

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/harperreed/canvass/models"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Minimum lengths for truncation-aware matching.
const (
	minPrefixLen        = 8
	minSegmentLen       = 8
	minActiveSegmentLen = 4
	maxDiagnostics      = 10
)

// Match sources, in cascade order.
const (
	MatchExact        = "exact"
	MatchPrefix       = "prefix"
	MatchSegment      = "segment"
	MatchOCRHistory   = "ocr-history"
	MatchFuzzyHistory = "fuzzy-history"
	MatchFuzzyActive  = "fuzzy-active"
	MatchActiveSeg    = "active-segment"
	MatchCreated      = "created"
)

// Reason classifies an unsuccessful resolution.
type Reason string

const (
	ReasonInvalidHandle       Reason = "invalid_handle"
	ReasonDuplicateCanvassing Reason = "duplicate_canvassing"
	ReasonProspectNotFound    Reason = "prospect_not_found"
	ReasonCycleNotActive      Reason = "cycle_not_active"
	ReasonStageGap            Reason = "stage_gap"
)

// HandleRef is an OCR reading stored on a past message together with the
// prospect that message was filed under.
type HandleRef struct {
	Handle     string    `db:"ocr_handle"`
	ProspectID uuid.UUID `db:"prospect_id"`
}

// Store is the persistence the resolver needs. Lookups that find nothing
// return nil without an error.
type Store interface {
	GetProspect(ctx context.Context, id uuid.UUID) (*models.Prospect, error)
	ProspectByHandle(ctx context.Context, handle string) (*models.Prospect, error)
	// ProspectsWithPrefix returns prospects whose handle starts with prefix.
	ProspectsWithPrefix(ctx context.Context, prefix string) ([]*models.Prospect, error)
	// ProspectsPrefixOf returns prospects whose handle is a prefix of handle
	// and at least minLen long.
	ProspectsPrefixOf(ctx context.Context, handle string, minLen int) ([]*models.Prospect, error)
	// MessageHandles lists OCR readings on the staff member's messages,
	// most recent first.
	MessageHandles(ctx context.Context, staffID int64) ([]HandleRef, error)
	// ActiveProspects lists prospects with an active-like cycle for staffID.
	ActiveProspects(ctx context.Context, staffID int64) ([]*models.Prospect, error)
	ActiveCycle(ctx context.Context, prospectID uuid.UUID, staffID int64) (*models.Cycle, error)
	LatestCycle(ctx context.Context, prospectID uuid.UUID, staffID int64) (*models.Cycle, error)
	HasStageMessage(ctx context.Context, cycleID uuid.UUID, stage int) (bool, error)
	CreateProspect(ctx context.Context, p *models.Prospect) error
	UpdateProspectHandle(ctx context.Context, id uuid.UUID, handle string) error
	CreateCycle(ctx context.Context, c *models.Cycle) error
}

// Result is the outcome of a resolution. Err is only returned alongside it
// for internal faults; everything else is reported through Valid and Reason.
type Result struct {
	Valid           bool             `json:"valid"`
	Prospect        *models.Prospect `json:"prospect,omitempty"`
	Cycle           *models.Cycle    `json:"cycle,omitempty"`
	MatchedBy       string           `json:"matched_by,omitempty"`
	ProspectCreated bool             `json:"prospect_created,omitempty"`
	Reason          Reason           `json:"reason,omitempty"`
	Error           string           `json:"error,omitempty"`
	Candidates      []string         `json:"candidates,omitempty"`
}

func failure(reason Reason, format string, args ...any) Result {
	return Result{Reason: reason, Error: fmt.Sprintf(format, args...)}
}

// Resolver maps handles onto prospects and cycles.
type Resolver struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// New builds a resolver. now defaults to time.Now.
func New(store Store, logger *zap.Logger, now func() time.Time) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Resolver{store: store, logger: logger, now: now}
}

// WithStore returns a resolver sharing configuration but reading and writing
// through store, typically a transaction.
func (r *Resolver) WithStore(store Store) *Resolver {
	cp := *r
	cp.store = store
	return &cp
}

// NormalizeHandle lowercases and trims a handle and drops any trailing
// non-alphanumeric run.
func NormalizeHandle(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.TrimRightFunc(h, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Resolve finds or creates the cycle an upload belongs to.
func (r *Resolver) Resolve(ctx context.Context, handle string, staffID int64, stage int) (Result, error) {
	h := NormalizeHandle(handle)
	if h == "" {
		return failure(ReasonInvalidHandle, "handle %q is empty after normalization", handle), nil
	}
	if !models.ValidStage(stage) {
		return failure(ReasonInvalidHandle, "stage %d is outside 0..%d", stage, models.MaxStage), nil
	}
	if stage == models.StageCanvassing {
		return r.resolveCanvassing(ctx, h, staffID)
	}
	return r.resolveFollowup(ctx, h, staffID, stage)
}

func (r *Resolver) resolveCanvassing(ctx context.Context, h string, staffID int64) (Result, error) {
	prospect, matchedBy, err := r.findForCanvassing(ctx, h)
	if err != nil {
		return Result{}, err
	}

	created := false
	if prospect == nil {
		prospect = &models.Prospect{ID: uuid.New(), Handle: h}
		if err := r.store.CreateProspect(ctx, prospect); err != nil {
			return Result{}, eris.Wrapf(err, "create prospect %q", h)
		}
		created = true
		matchedBy = MatchCreated
		r.logger.Info("prospect created", zap.String("handle", h), zap.Int64("staff_id", staffID))
	} else {
		if err := r.lengthen(ctx, prospect, h); err != nil {
			return Result{}, err
		}
		active, err := r.store.ActiveCycle(ctx, prospect.ID, staffID)
		if err != nil {
			return Result{}, eris.Wrap(err, "lookup active cycle")
		}
		if active != nil {
			return failure(ReasonDuplicateCanvassing,
				"prospect %q was already canvassed by staff %d (cycle %s is %s)",
				prospect.Handle, staffID, active.ID, active.Status), nil
		}
	}

	now := r.now()
	cycle := &models.Cycle{
		ID:           uuid.New(),
		ProspectID:   prospect.ID,
		StaffID:      staffID,
		StartDate:    time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
		CurrentStage: models.StageCanvassing,
		Status:       models.StatusActive,
	}
	if err := r.store.CreateCycle(ctx, cycle); err != nil {
		return Result{}, eris.Wrapf(err, "create cycle for %q", prospect.Handle)
	}

	return Result{Valid: true, Prospect: prospect, Cycle: cycle, MatchedBy: matchedBy, ProspectCreated: created}, nil
}

// findForCanvassing tries an exact match, then a truncation-aware prefix
// match in either direction.
func (r *Resolver) findForCanvassing(ctx context.Context, h string) (*models.Prospect, string, error) {
	p, err := r.store.ProspectByHandle(ctx, h)
	if err != nil {
		return nil, "", eris.Wrap(err, "exact prospect lookup")
	}
	if p != nil {
		return p, MatchExact, nil
	}

	cands, err := r.prefixCandidates(ctx, h)
	if err != nil {
		return nil, "", err
	}
	if best, ok := closestLength(cands, h, nil); ok {
		return best, MatchPrefix, nil
	}
	return nil, "", nil
}

func (r *Resolver) prefixCandidates(ctx context.Context, h string) ([]*models.Prospect, error) {
	var out []*models.Prospect
	if len(h) >= minPrefixLen {
		longer, err := r.store.ProspectsWithPrefix(ctx, h)
		if err != nil {
			return nil, eris.Wrap(err, "prefix prospect lookup")
		}
		out = append(out, longer...)
	}
	shorter, err := r.store.ProspectsPrefixOf(ctx, h, minPrefixLen)
	if err != nil {
		return nil, eris.Wrap(err, "prefix prospect lookup")
	}
	return append(out, shorter...), nil
}

// followupLookup carries the state shared by the follow-up cascade steps.
type followupLookup struct {
	r       *Resolver
	h       string
	staffID int64

	active     []*models.Prospect
	activeByID map[uuid.UUID]bool
	history    []HandleRef
}

func (r *Resolver) resolveFollowup(ctx context.Context, h string, staffID int64, stage int) (Result, error) {
	l := &followupLookup{r: r, h: h, staffID: staffID}
	if err := l.load(ctx); err != nil {
		return Result{}, err
	}

	steps := []struct {
		name string
		find func(context.Context) (*models.Prospect, error)
	}{
		{MatchExact, l.exact},
		{MatchPrefix, l.prefix},
		{MatchSegment, l.segment},
		{MatchOCRHistory, l.ocrHistory},
		{MatchFuzzyHistory, l.fuzzyHistory},
		{MatchFuzzyActive, l.fuzzyActive},
		{MatchActiveSeg, l.activeSegment},
	}

	var prospect *models.Prospect
	var matchedBy string
	for _, step := range steps {
		p, err := step.find(ctx)
		if err != nil {
			return Result{}, err
		}
		if p != nil {
			prospect, matchedBy = p, step.name
			break
		}
	}

	if prospect == nil {
		res := failure(ReasonProspectNotFound,
			"no prospect matches handle %q for staff %d; follow-ups must belong to a canvassed prospect",
			h, staffID)
		res.Candidates = l.diagnostics()
		return res, nil
	}

	cycle, err := r.store.ActiveCycle(ctx, prospect.ID, staffID)
	if err != nil {
		return Result{}, eris.Wrap(err, "lookup active cycle")
	}
	if cycle == nil {
		latest, err := r.store.LatestCycle(ctx, prospect.ID, staffID)
		if err != nil {
			return Result{}, eris.Wrap(err, "lookup latest cycle")
		}
		if latest == nil {
			return failure(ReasonCycleNotActive,
				"prospect %q has never been canvassed by staff %d", prospect.Handle, staffID), nil
		}
		return failure(ReasonCycleNotActive,
			"prospect %q has no active cycle for staff %d; latest cycle is %s",
			prospect.Handle, staffID, latest.Status), nil
	}

	ok, err := r.store.HasStageMessage(ctx, cycle.ID, stage-1)
	if err != nil {
		return Result{}, eris.Wrap(err, "check previous stage")
	}
	if !ok {
		return failure(ReasonStageGap,
			"stage %d for %q needs the %s screenshot (stage %d) first",
			stage, prospect.Handle, models.StageLabel(stage-1), stage-1), nil
	}

	if err := r.lengthen(ctx, prospect, h); err != nil {
		return Result{}, err
	}

	r.logger.Debug("follow-up resolved",
		zap.String("handle", h),
		zap.String("prospect", prospect.Handle),
		zap.String("matched_by", matchedBy),
		zap.Int("stage", stage))
	return Result{Valid: true, Prospect: prospect, Cycle: cycle, MatchedBy: matchedBy}, nil
}

func (l *followupLookup) load(ctx context.Context) error {
	active, err := l.r.store.ActiveProspects(ctx, l.staffID)
	if err != nil {
		return eris.Wrap(err, "list active prospects")
	}
	l.active = active
	l.activeByID = make(map[uuid.UUID]bool, len(active))
	for _, p := range active {
		l.activeByID[p.ID] = true
	}

	history, err := l.r.store.MessageHandles(ctx, l.staffID)
	if err != nil {
		return eris.Wrap(err, "list message handles")
	}
	l.history = history
	return nil
}

func (l *followupLookup) exact(ctx context.Context) (*models.Prospect, error) {
	p, err := l.r.store.ProspectByHandle(ctx, l.h)
	if err != nil {
		return nil, eris.Wrap(err, "exact prospect lookup")
	}
	return p, nil
}

func (l *followupLookup) prefix(ctx context.Context) (*models.Prospect, error) {
	cands, err := l.r.prefixCandidates(ctx, l.h)
	if err != nil {
		return nil, err
	}
	best, _ := closestLength(cands, l.h, l.activeByID)
	return best, nil
}

// segment matches prospects sharing the underscore-delimited first segment,
// which covers truncation inside the suffix.
func (l *followupLookup) segment(ctx context.Context) (*models.Prospect, error) {
	seg, ok := firstSegment(l.h)
	if !ok || len(seg) < minSegmentLen {
		return nil, nil
	}
	cands, err := l.r.store.ProspectsWithPrefix(ctx, seg+"_")
	if err != nil {
		return nil, eris.Wrap(err, "segment prospect lookup")
	}
	best, _ := closestLength(cands, l.h, l.activeByID)
	return best, nil
}

// ocrHistory matches against earlier OCR readings rather than canonical
// handles.
func (l *followupLookup) ocrHistory(ctx context.Context) (*models.Prospect, error) {
	var cands []candidate
	for _, ref := range l.history {
		if ref.Handle == l.h || prefixEither(ref.Handle, l.h) {
			cands = append(cands, candidate{
				ProspectID: ref.ProspectID,
				Handle:     ref.Handle,
				Distance:   abs(len(ref.Handle) - len(l.h)),
				Active:     l.activeByID[ref.ProspectID],
				Source:     MatchOCRHistory,
			})
		}
	}
	return l.pick(ctx, cands)
}

func (l *followupLookup) fuzzyHistory(ctx context.Context) (*models.Prospect, error) {
	limit := Threshold(l.h)
	var cands []candidate
	for _, ref := range l.history {
		if d := Distance(l.h, ref.Handle); d <= limit {
			cands = append(cands, candidate{
				ProspectID: ref.ProspectID,
				Handle:     ref.Handle,
				Distance:   d,
				Active:     l.activeByID[ref.ProspectID],
				Source:     MatchFuzzyHistory,
			})
		}
	}
	return l.pick(ctx, cands)
}

func (l *followupLookup) fuzzyActive(ctx context.Context) (*models.Prospect, error) {
	limit := Threshold(l.h)
	var cands []candidate
	for _, p := range l.active {
		if d := Distance(l.h, p.Handle); d <= limit {
			cands = append(cands, candidate{ProspectID: p.ID, Handle: p.Handle, Distance: d, Active: true, Source: MatchFuzzyActive})
		}
	}
	return l.pick(ctx, cands)
}

// activeSegment is the last resort: a shared first segment with a prospect
// this staff member is actively following up.
func (l *followupLookup) activeSegment(ctx context.Context) (*models.Prospect, error) {
	seg, ok := firstSegment(l.h)
	if !ok || len(seg) < minActiveSegmentLen {
		return nil, nil
	}
	var cands []candidate
	for _, p := range l.active {
		if other, ok := firstSegment(p.Handle); ok && other == seg {
			cands = append(cands, candidate{ProspectID: p.ID, Handle: p.Handle, Distance: Levenshtein(l.h, p.Handle), Active: true, Source: MatchActiveSeg})
		}
	}
	return l.pick(ctx, cands)
}

func (l *followupLookup) pick(ctx context.Context, cands []candidate) (*models.Prospect, error) {
	best, ok := selectCandidate(cands)
	if !ok {
		return nil, nil
	}
	for _, p := range l.active {
		if p.ID == best.ProspectID {
			return p, nil
		}
	}
	p, err := l.r.store.GetProspect(ctx, best.ProspectID)
	if err != nil {
		return nil, eris.Wrap(err, "load matched prospect")
	}
	return p, nil
}

// diagnostics lists what is on file for the staff member so a supervisor can
// correct the match by hand.
func (l *followupLookup) diagnostics() []string {
	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		if s != "" && !seen[s] && len(out) < 2*maxDiagnostics {
			seen[s] = true
			out = append(out, s)
		}
	}
	for i, p := range l.active {
		if i >= maxDiagnostics {
			break
		}
		add("prospect:" + p.Handle)
	}
	for i, ref := range l.history {
		if i >= maxDiagnostics {
			break
		}
		add("ocr:" + ref.Handle)
	}
	return out
}

// lengthen replaces the stored handle with a strictly longer reading unless
// another prospect already owns that handle.
func (r *Resolver) lengthen(ctx context.Context, p *models.Prospect, h string) error {
	if len(h) <= len(p.Handle) {
		return nil
	}
	owner, err := r.store.ProspectByHandle(ctx, h)
	if err != nil {
		return eris.Wrap(err, "check handle owner")
	}
	if owner != nil && owner.ID != p.ID {
		r.logger.Warn("handle lengthening skipped, handle owned by another prospect",
			zap.String("prospect", p.Handle), zap.String("handle", h))
		return nil
	}
	if err := r.store.UpdateProspectHandle(ctx, p.ID, h); err != nil {
		return eris.Wrapf(err, "lengthen handle %q", p.Handle)
	}
	r.logger.Info("prospect handle lengthened", zap.String("from", p.Handle), zap.String("to", h))
	p.Handle = h
	return nil
}

// closestLength picks the candidate whose handle length is nearest to h,
// preferring prospects in active (when given), then by handle.
func closestLength(cands []*models.Prospect, h string, active map[uuid.UUID]bool) (*models.Prospect, bool) {
	var best *models.Prospect
	for _, p := range cands {
		if best == nil || closer(p, best, h, active) {
			best = p
		}
	}
	return best, best != nil
}

func closer(a, b *models.Prospect, h string, active map[uuid.UUID]bool) bool {
	if active[a.ID] != active[b.ID] {
		return active[a.ID]
	}
	da, db := abs(len(a.Handle)-len(h)), abs(len(b.Handle)-len(h))
	if da != db {
		return da < db
	}
	return a.Handle < b.Handle
}

func firstSegment(h string) (string, bool) {
	i := strings.IndexByte(h, '_')
	if i <= 0 {
		return "", false
	}
	return h[:i], true
}

// prefixEither reports whether one handle is a prefix of the other with the
// shorter side long enough to be meaningful.
func prefixEither(a, b string) bool {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	return len(short) >= minPrefixLen && strings.HasPrefix(long, short)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
