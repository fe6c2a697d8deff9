package survey

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"

	"github.com/ironsheep/level-check-mcp/internal/failure"
	"github.com/ironsheep/level-check-mcp/internal/grid"
	"github.com/ironsheep/level-check-mcp/internal/measure"
	"github.com/ironsheep/level-check-mcp/internal/tolerance"
	"github.com/ironsheep/level-check-mcp/internal/units"
)

// Store keeps sessions in memory, keyed by ID.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	now      func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[uuid.UUID]*Session),
		now:      time.Now,
	}
}

// Create generates the grid for g and registers a new session.
func (s *Store) Create(g Geometry) (*Session, error) {
	sess := &Session{
		id:      uuid.New(),
		created: s.now(),
	}
	if err := sess.reset(g); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	return sess, nil
}

// Get returns the session with the given ID.
func (s *Store) Get(id uuid.UUID) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, &failure.ValidationError{Field: "session_id", Value: id, Reason: "no such session"}
	}
	return sess, nil
}

// Delete removes a session. It reports whether the session existed.
func (s *Store) Delete(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Summary is a short description of a session for listings.
type Summary struct {
	ID        uuid.UUID    `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	Units     units.System `json:"units"`
	Rows      int          `json:"rows"`
	Cols      int          `json:"cols"`
	Measured  int          `json:"measured"`
	Total     int          `json:"total"`
}

// List summarizes every session, oldest first.
func (s *Store) List() []Summary {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	out := make([]Summary, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sess.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Session is one level-check survey. All methods are safe for concurrent use;
// writes are serialized by the session lock.
type Session struct {
	id      uuid.UUID
	created time.Time

	mu          sync.RWMutex
	geometry    Geometry
	points      []GridPoint
	index       map[string]int
	calibration *measure.Calibration
}

// ID returns the session ID.
func (s *Session) ID() uuid.UUID { return s.id }

// CreatedAt returns the creation time.
func (s *Session) CreatedAt() time.Time { return s.created }

// reset regenerates the grid for g. The caller holds the write lock or owns s
// exclusively.
func (s *Session) reset(g Geometry) error {
	samples, err := grid.GridWorldPositions(g.Transform, g.Width, g.Length, g.Rows, g.Cols)
	if err != nil {
		return err
	}

	points := make([]GridPoint, len(samples))
	index := make(map[string]int, len(samples))
	for i, smp := range samples {
		points[i] = GridPoint{
			ID:            uuid.New(),
			SessionID:     s.id,
			RowLetter:     smp.RowLetter,
			ColIndex:      smp.ColIndex,
			WorldPosition: smp.World,
		}
		index[smp.Label()] = i
	}

	s.geometry = g
	s.points = points
	s.index = index
	return nil
}

// Geometry returns the session geometry.
func (s *Session) Geometry() Geometry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.geometry
}

// Summary describes the session for listings.
func (s *Session) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	measured := 0
	for _, p := range s.points {
		if p.Measured() {
			measured++
		}
	}
	return Summary{
		ID:        s.id,
		CreatedAt: s.created,
		Units:     s.geometry.Units,
		Rows:      s.geometry.Rows,
		Cols:      s.geometry.Cols,
		Measured:  measured,
		Total:     len(s.points),
	}
}

// Points returns a snapshot of every grid point in row-major order.
func (s *Session) Points() []GridPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]GridPoint, len(s.points))
	for i, p := range s.points {
		out[i] = p.clone()
	}
	return out
}

// Point returns a snapshot of one grid point. Labels are case-insensitive.
func (s *Session) Point(label string) (GridPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, err := s.lookup(label)
	if err != nil {
		return GridPoint{}, err
	}
	return s.points[i].clone(), nil
}

// Samples returns the statistics view of every point.
func (s *Session) Samples() []tolerance.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]tolerance.Sample, len(s.points))
	for i, p := range s.points {
		out[i] = p.sample()
	}
	return out
}

func (s *Session) lookup(label string) (int, error) {
	i, ok := s.index[strings.ToUpper(strings.TrimSpace(label))]
	if !ok {
		return 0, &failure.ValidationError{Field: "label", Value: label, Reason: "no such grid point"}
	}
	return i, nil
}

// channel selects the derived flags a write makes stale.
type channel int

const (
	valueChannel channel = iota
	heightChannel
)

// update runs fn on the point with the given label under the write lock and
// returns a snapshot of the result. Deviations are taken from the session
// average, so the derived flags of ch are cleared on every point.
func (s *Session) update(label string, ch channel, fn func(p *GridPoint)) (GridPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.lookup(label)
	if err != nil {
		return GridPoint{}, err
	}
	fn(&s.points[i])
	for j := range s.points {
		p := &s.points[j]
		switch ch {
		case valueChannel:
			p.DeviationFromAvg, p.PassFail = nil, nil
		case heightChannel:
			p.HeightDeviation, p.HeightPassFail = nil, nil
		}
	}
	return s.points[i].clone(), nil
}

// CommitMeasurement stores a vision reading as the point's AI value. A
// non-empty photo path is appended to the point's photos. A manual result is
// committed as an override instead.
//
// Every value write clears the committed deviations and pass flags until
// ApplyPassFail runs again; RecordLidar does the same for the height flags.
func (s *Session) CommitMeasurement(label string, res measure.Result, photo string) (GridPoint, error) {
	if res.Method == measure.MethodManual {
		return s.Override(label, res)
	}
	return s.update(label, valueChannel, func(p *GridPoint) {
		p.AIValue = ptr(res.Value)
		p.AIDisplay = res.Display
		p.AIConfidence = ptr(res.Confidence)
		p.AIMethod = res.Method
		if photo != "" {
			p.Photos = append(p.Photos, photo)
		}
	})
}

// Override stores a user-entered value, which takes precedence over the AI
// value.
func (s *Session) Override(label string, res measure.Result) (GridPoint, error) {
	return s.update(label, valueChannel, func(p *GridPoint) {
		p.UserValue = ptr(res.Value)
		p.UserDisplay = res.Display
		p.UserOverridden = true
	})
}

// ClearOverride drops the user value so the AI value is final again.
func (s *Session) ClearOverride(label string) (GridPoint, error) {
	return s.update(label, valueChannel, func(p *GridPoint) {
		p.UserValue = nil
		p.UserDisplay = ""
		p.UserOverridden = false
	})
}

// RecordLidar stores a raw LiDAR height, in meters, for a point.
func (s *Session) RecordLidar(label string, meters float64) (GridPoint, error) {
	return s.update(label, heightChannel, func(p *GridPoint) {
		p.LidarHeight = ptr(meters)
	})
}

// ApplyPassFail recomputes the value-channel statistics and commits each
// measured point's deviation and pass flag. Unmeasured points have their
// flags cleared.
func (s *Session) ApplyPassFail() (tolerance.Stats, []tolerance.PointResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	samples := make([]tolerance.Sample, len(s.points))
	for i, p := range s.points {
		samples[i] = p.sample()
	}
	st, results := tolerance.ComputePassFail(samples, s.geometry.Tolerance)

	byLabel := make(map[string]tolerance.PointResult, len(results))
	for _, r := range results {
		byLabel[r.Label] = r
	}
	for i := range s.points {
		p := &s.points[i]
		r, ok := byLabel[p.Label()]
		if !ok {
			p.DeviationFromAvg, p.PassFail = nil, nil
			continue
		}
		p.DeviationFromAvg = ptr(r.Deviation)
		p.PassFail = ptr(r.Pass)
	}
	return st, results
}

// ApplyHeightDeviations computes the LiDAR-channel deviations and commits
// them. Points without a height have their height flags cleared.
func (s *Session) ApplyHeightDeviations() []tolerance.HeightDeviation {
	s.mu.Lock()
	defer s.mu.Unlock()

	samples := make([]tolerance.Sample, len(s.points))
	for i, p := range s.points {
		samples[i] = p.sample()
	}
	devs := tolerance.ComputeHeightDeviations(samples, s.geometry.Tolerance, s.geometry.Units)

	byLabel := make(map[string]tolerance.HeightDeviation, len(devs))
	for _, d := range devs {
		byLabel[d.Label] = d
	}
	for i := range s.points {
		p := &s.points[i]
		d, ok := byLabel[p.Label()]
		if !ok {
			p.HeightDeviation, p.HeightPassFail = nil, nil
			continue
		}
		p.HeightDeviation = ptr(d.Deviation)
		p.HeightPassFail = ptr(d.Pass)
	}
	return devs
}

// SurfacePoints returns the measured floor surface: each point's world X and Z
// with its LiDAR height as Y. Points without a height are skipped.
func (s *Session) SurfacePoints() []r3.Vector {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []r3.Vector
	for _, p := range s.points {
		if p.LidarHeight == nil {
			continue
		}
		out = append(out, r3.Vector{X: p.WorldPosition.X, Y: *p.LidarHeight, Z: p.WorldPosition.Z})
	}
	return out
}

// Calibration returns a copy of the cached calibration, or nil.
func (s *Session) Calibration() *measure.Calibration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.calibration == nil {
		return nil
	}
	c := *s.calibration
	return &c
}

// SetCalibration validates and caches a calibration for later captures.
func (s *Session) SetCalibration(c measure.Calibration) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.calibration = &c
	s.mu.Unlock()
	return nil
}

// ClearCalibration drops the cached calibration.
func (s *Session) ClearCalibration() {
	s.mu.Lock()
	s.calibration = nil
	s.mu.Unlock()
}

// Regenerate replaces the geometry and rebuilds the grid. Every point is
// reset. The cached calibration survives unless the unit system changes.
func (s *Session) Regenerate(g Geometry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	unitsChanged := g.Units != s.geometry.Units
	if err := s.reset(g); err != nil {
		return err
	}
	if unitsChanged {
		s.calibration = nil
	}
	return nil
}
