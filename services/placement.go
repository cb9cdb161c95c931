// services/placement.go
package services

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"mission-engine/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// SnapTolerance is the maximum pixel distance between the snapped cell
	// center and the piece's correct cell center for a committed snap.
	SnapTolerance = 40.0

	DefaultGridSize = 3
	MinGridSize     = 3
	MaxGridSize     = 7

	DefaultGridWidth = 300.0

	// Horizontal gap between the grid's right edge and the scatter tray.
	trayMargin = 40.0

	// Idle sessions are discarded by the sweeper; piece state is ephemeral
	// and regenerated on every (re)entry.
	sessionTTL = 45 * time.Minute
)

// PieceState is the ephemeral per-session state of one puzzle piece.
// Positions are pixels relative to the grid origin.
type PieceState struct {
	ID     int     `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Locked bool    `json:"locked"`
	InTray bool    `json:"in_tray"`
}

// PlacementSession holds one play-through of a placement mission. Never
// persisted; discarded and regenerated on mission (re)entry.
type PlacementSession struct {
	ID        string       `json:"id"`
	MissionID string       `json:"mission_id"`
	Wallet    string       `json:"-"`
	GridSize  int          `json:"grid_size"`
	GridWidth float64      `json:"grid_width"`
	Pieces    []PieceState `json:"pieces"`
	StartedAt time.Time    `json:"started_at"`
	SolvedAt  *time.Time   `json:"solved_at,omitempty"`

	lastTouch       time.Time
	solvedElapsedMs int64
}

// DropResolution reports what happened to a dropped piece.
type DropResolution struct {
	Piece     PieceState `json:"piece"`
	Committed bool       `json:"committed"` // entered a grid cell (snapped)
	Solved    bool       `json:"solved"`
	ElapsedMs int64      `json:"elapsed_ms,omitempty"`
}

// CorrectCell maps piece i to its correct grid cell.
func CorrectCell(pieceID, gridSize int) (col, row int) {
	return pieceID % gridSize, pieceID / gridSize
}

// ClampGridSize bounds an admin-configured grid size to the supported range.
func ClampGridSize(n int) int {
	if n < MinGridSize {
		if n <= 0 {
			return DefaultGridSize
		}
		return MinGridSize
	}
	if n > MaxGridSize {
		return MaxGridSize
	}
	return n
}

// ResolveDrop decides, for one released piece, whether it snaps into a cell
// and whether that snap locks it. The distance test is against the piece's
// *correct* cell center, not the drop point, so an approximately-right drop
// on the wrong cell never locks. Total — never errors; locked pieces are
// immovable no-ops.
func ResolveDrop(gridSize int, gridWidth float64, piece PieceState, dropX, dropY float64) (PieceState, bool) {
	if piece.Locked {
		return piece, false
	}

	pieceSize := gridWidth / float64(gridSize)
	half := pieceSize / 2

	outsideX := dropX < -half || dropX >= gridWidth+half
	outsideY := dropY < -half || dropY >= gridWidth+half
	if outsideX && outsideY {
		// Rejected: stays wherever dropped, in the tray / free zone.
		piece.X = dropX
		piece.Y = dropY
		return piece, false
	}

	col := clampIndex(int(math.Round(dropX/pieceSize)), gridSize)
	row := clampIndex(int(math.Round(dropY/pieceSize)), gridSize)

	correctCol, correctRow := CorrectCell(piece.ID, gridSize)

	snappedCX := float64(col)*pieceSize + half
	snappedCY := float64(row)*pieceSize + half
	correctCX := float64(correctCol)*pieceSize + half
	correctCY := float64(correctRow)*pieceSize + half

	dist := math.Hypot(snappedCX-correctCX, snappedCY-correctCY)

	piece.X = float64(col) * pieceSize
	piece.Y = float64(row) * pieceSize
	piece.InTray = false
	piece.Locked = dist < SnapTolerance && col == correctCol && row == correctRow
	return piece, true
}

func clampIndex(i, gridSize int) int {
	if i < 0 {
		return 0
	}
	if i >= gridSize {
		return gridSize - 1
	}
	return i
}

// ScatterPieces lays out gridSize² fresh pieces at random positions inside
// the tray area to the right of the grid, none overlapping the grid itself.
func ScatterPieces(gridSize int, gridWidth float64, rng *rand.Rand) []PieceState {
	pieceSize := gridWidth / float64(gridSize)
	trayX := gridWidth + trayMargin
	trayW := gridWidth - pieceSize
	if trayW < 1 {
		trayW = 1
	}

	pieces := make([]PieceState, gridSize*gridSize)
	for i := range pieces {
		pieces[i] = PieceState{
			ID:     i,
			X:      trayX + rng.Float64()*trayW,
			Y:      rng.Float64() * (gridWidth - pieceSize),
			InTray: true,
		}
	}
	return pieces
}

func allLocked(pieces []PieceState) bool {
	for _, p := range pieces {
		if !p.Locked {
			return false
		}
	}
	return true
}

type PlacementService struct {
	DB     *gorm.DB
	Ledger *LedgerService

	mu       sync.Mutex
	sessions map[string]*PlacementSession
	rng      *rand.Rand
}

func NewPlacementService(db *gorm.DB, ledger *LedgerService) *PlacementService {
	return &PlacementService{
		DB:       db,
		Ledger:   ledger,
		sessions: make(map[string]*PlacementSession),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// StartSession creates a fresh session for (wallet, mission), discarding any
// previous one so stale piece state never leaks between entries.
func (s *PlacementService) StartSession(wallet, missionID string, gridWidth float64) (*PlacementSession, error) {
	var mission models.Mission
	if err := s.DB.
		Where("id = ? AND status = ?", missionID, models.MissionStatusPublished).
		First(&mission).Error; err != nil {
		return nil, err
	}
	if mission.Kind != models.MissionKindPlacement {
		return nil, errors.New("mission is not a placement mission")
	}

	gridSize := ClampGridSize(mission.Placement.GridSize)
	if gridWidth <= 0 {
		gridWidth = DefaultGridWidth
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.sessions {
		if sess.Wallet == wallet && sess.MissionID == missionID {
			delete(s.sessions, id)
		}
	}

	now := time.Now()
	sess := &PlacementSession{
		ID:        uuid.NewString(),
		MissionID: missionID,
		Wallet:    wallet,
		GridSize:  gridSize,
		GridWidth: gridWidth,
		Pieces:    ScatterPieces(gridSize, gridWidth, s.rng),
		StartedAt: now,
		lastTouch: now,
	}
	s.sessions[sess.ID] = sess
	return sess, nil
}

// Session returns a live session owned by the wallet, or nil.
func (s *PlacementService) Session(sessionID, wallet string) *PlacementSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.Wallet != wallet {
		return nil
	}
	return sess
}

// sessionState reports existence and solved state without handing out the
// session itself. Drop mutates SolvedAt under the mutex, so concurrent
// readers must come through here.
func (s *PlacementService) sessionState(sessionID, wallet string) (exists, solved bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.Wallet != wallet {
		return false, false
	}
	return true, sess.SolvedAt != nil
}

// Drop resolves one piece release. When the last piece locks, the elapsed
// duration is captured once and the completion is committed through the
// ledger.
func (s *PlacementService) Drop(sessionID, wallet string, pieceID int, x, y float64) (*DropResolution, *CompletionResult, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.Wallet != wallet {
		s.mu.Unlock()
		return nil, nil, errors.New("placement session not found")
	}
	if pieceID < 0 || pieceID >= len(sess.Pieces) {
		s.mu.Unlock()
		return nil, nil, errors.New("unknown piece")
	}
	var res *DropResolution
	if sess.SolvedAt != nil {
		// Already solved; re-running the ledger is a no-op, so a drop after a
		// failed commit heals it.
		res = &DropResolution{Piece: sess.Pieces[pieceID], Solved: true, ElapsedMs: sess.solvedElapsedMs}
	} else {
		piece, committed := ResolveDrop(sess.GridSize, sess.GridWidth, sess.Pieces[pieceID], x, y)
		sess.Pieces[pieceID] = piece
		sess.lastTouch = time.Now()

		res = &DropResolution{Piece: piece, Committed: committed}
		if allLocked(sess.Pieces) {
			now := time.Now()
			sess.SolvedAt = &now
			res.Solved = true
			res.ElapsedMs = now.Sub(sess.StartedAt).Milliseconds()
			sess.solvedElapsedMs = res.ElapsedMs
		}
	}
	s.mu.Unlock()

	if !res.Solved {
		return res, nil, nil
	}

	completion, err := s.Ledger.CompleteMission(wallet, sess.MissionID, res.ElapsedMs)
	if err != nil {
		return res, nil, err
	}
	return res, completion, nil
}

// SweepExpired drops idle and long-solved sessions. Run periodically by the
// scheduler.
func (s *PlacementService) SweepExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastTouch) > sessionTTL {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// --- Fiber handlers ---

func (s *PlacementService) HandleStart(c *fiber.Ctx) error {
	wallet := c.Locals("user_id").(string)
	missionID := c.Params("id")

	var req struct {
		GridWidth float64 `json:"grid_width"`
	}
	// Body is optional; default grid width applies when absent.
	_ = c.BodyParser(&req)

	sess, err := s.StartSession(wallet, missionID, req.GridWidth)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "mission not found"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to start session", "cause": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(sess)
}

func (s *PlacementService) HandleDrop(c *fiber.Ctx) error {
	wallet := c.Locals("user_id").(string)
	sessionID := c.Params("session_id")

	var req struct {
		PieceID int     `json:"piece_id"`
		X       float64 `json:"x"`
		Y       float64 `json:"y"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
	}

	res, completion, err := s.Drop(sessionID, wallet, req.PieceID, req.X, req.Y)
	if err != nil {
		if res == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		// Solve detected but the ledger write failed: no partial mutation was
		// applied; surface a save-failed state the client can retry from.
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "completion save failed",
			"cause": err.Error(),
		})
	}

	body := fiber.Map{"resolution": res}
	if completion != nil {
		body["completion"] = completion
	}
	return c.JSON(body)
}
