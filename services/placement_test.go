package services

import (
	"math/rand"
	"testing"

	"mission-engine/models"
)

func TestCorrectCell(t *testing.T) {
	cases := []struct {
		pieceID, gridSize, col, row int
	}{
		{0, 3, 0, 0},
		{2, 3, 2, 0},
		{3, 3, 0, 1},
		{4, 3, 1, 1},
		{8, 3, 2, 2},
		{24, 5, 4, 4},
	}
	for _, tc := range cases {
		col, row := CorrectCell(tc.pieceID, tc.gridSize)
		if col != tc.col || row != tc.row {
			t.Fatalf("CorrectCell(%d, %d)=(%d,%d), want (%d,%d)", tc.pieceID, tc.gridSize, col, row, tc.col, tc.row)
		}
	}
}

func TestClampGridSize(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 3}, {2, 3}, {3, 3}, {5, 5}, {7, 7}, {9, 7},
	}
	for _, tc := range cases {
		if got := ClampGridSize(tc.in); got != tc.want {
			t.Fatalf("ClampGridSize(%d)=%d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestResolveDropLocksOnCorrectCell(t *testing.T) {
	// gridSize=3, 300px grid: piece 4's correct cell is (1,1), origin (100,100).
	piece := PieceState{ID: 4, X: 400, Y: 50, InTray: true}

	got, committed := ResolveDrop(3, 300, piece, 110, 95)
	if !committed {
		t.Fatal("drop on grid not committed")
	}
	if !got.Locked {
		t.Fatal("piece dropped near its correct center did not lock")
	}
	if got.InTray {
		t.Fatal("locked piece still reports in_tray")
	}
	if got.X != 100 || got.Y != 100 {
		t.Fatalf("locked piece at (%v,%v), want (100,100)", got.X, got.Y)
	}
}

func TestResolveDropWrongCellNeverLocks(t *testing.T) {
	// Piece 4 dropped dead center of cell (0,0): within tolerance of *that*
	// cell, but the distance test runs against the correct cell.
	piece := PieceState{ID: 4, X: 400, Y: 50, InTray: true}

	got, committed := ResolveDrop(3, 300, piece, 0, 0)
	if !committed {
		t.Fatal("in-grid drop not committed")
	}
	if got.Locked {
		t.Fatal("piece locked in the wrong cell")
	}
	if got.X != 0 || got.Y != 0 {
		t.Fatalf("piece at (%v,%v), want snapped to (0,0)", got.X, got.Y)
	}
}

func TestResolveDropOutsideGridRejected(t *testing.T) {
	piece := PieceState{ID: 0, X: 340, Y: 10, InTray: true}

	got, committed := ResolveDrop(3, 300, piece, 500, 500)
	if committed {
		t.Fatal("drop far outside the grid was committed")
	}
	if got.Locked {
		t.Fatal("rejected drop locked")
	}
	if !got.InTray {
		t.Fatal("rejected drop left the tray")
	}
	if got.X != 500 || got.Y != 500 {
		t.Fatalf("rejected piece at (%v,%v), want left at drop point", got.X, got.Y)
	}
}

func TestResolveDropLockedPieceImmovable(t *testing.T) {
	piece := PieceState{ID: 0, X: 0, Y: 0, Locked: true}

	got, committed := ResolveDrop(3, 300, piece, 200, 200)
	if committed {
		t.Fatal("locked piece re-resolved")
	}
	if got.X != 0 || got.Y != 0 || !got.Locked {
		t.Fatalf("locked piece mutated: %+v", got)
	}
}

func TestScatterPiecesStayOffGrid(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	pieces := ScatterPieces(3, 300, rng)

	if len(pieces) != 9 {
		t.Fatalf("got %d pieces, want 9", len(pieces))
	}
	for _, p := range pieces {
		if !p.InTray {
			t.Fatalf("piece %d scattered outside the tray", p.ID)
		}
		if p.Locked {
			t.Fatalf("piece %d scattered locked", p.ID)
		}
		if p.X < 300 {
			t.Fatalf("piece %d overlaps the grid (x=%v)", p.ID, p.X)
		}
	}
}

func TestPlacementSessionSolveFlow(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	svc := NewPlacementService(db, ledger)

	mission := seedMission(t, db, models.Mission{
		Name:       "Puzzle One",
		Kind:       models.MissionKindPlacement,
		BasePoints: 100,
		Placement:  models.PlacementPayload{GridSize: 3},
	})

	sess, err := svc.StartSession("wallet-a", mission.ID, 300)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if len(sess.Pieces) != 9 {
		t.Fatalf("session has %d pieces, want 9", len(sess.Pieces))
	}

	var completion *CompletionResult
	for i := 0; i < 9; i++ {
		col, row := CorrectCell(i, 3)
		res, comp, err := svc.Drop(sess.ID, "wallet-a", i, float64(col)*100, float64(row)*100)
		if err != nil {
			t.Fatalf("Drop piece %d: %v", i, err)
		}
		if !res.Piece.Locked {
			t.Fatalf("piece %d did not lock on its correct cell", i)
		}
		if i < 8 && res.Solved {
			t.Fatalf("solved early at piece %d", i)
		}
		if i == 8 {
			if !res.Solved {
				t.Fatal("mission not solved after the 9th piece locked")
			}
			completion = comp
		}
	}

	if completion == nil {
		t.Fatal("no completion returned on solve")
	}
	// First-ever completion: full multiplier, new-record doubling.
	if completion.Earned != 200 {
		t.Fatalf("earned %d, want 200", completion.Earned)
	}

	prof := loadProfile(t, db, "wallet-a")
	if prof.Points != 200 || prof.LifetimePoints != 200 {
		t.Fatalf("profile points=%d lifetime=%d, want 200/200", prof.Points, prof.LifetimePoints)
	}
}

func TestStartSessionDiscardsPrevious(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlacementService(db, NewLedgerService(db))

	mission := seedMission(t, db, models.Mission{
		Name:       "Puzzle Two",
		Kind:       models.MissionKindPlacement,
		BasePoints: 10,
		Placement:  models.PlacementPayload{GridSize: 3},
	})

	first, err := svc.StartSession("wallet-a", mission.ID, 300)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	second, err := svc.StartSession("wallet-a", mission.ID, 300)
	if err != nil {
		t.Fatalf("StartSession (second): %v", err)
	}

	if svc.Session(first.ID, "wallet-a") != nil {
		t.Fatal("stale session survived re-entry")
	}
	if svc.Session(second.ID, "wallet-a") == nil {
		t.Fatal("fresh session missing")
	}
}

func TestSessionOwnership(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlacementService(db, NewLedgerService(db))

	mission := seedMission(t, db, models.Mission{
		Name:       "Puzzle Three",
		Kind:       models.MissionKindPlacement,
		BasePoints: 10,
		Placement:  models.PlacementPayload{GridSize: 3},
	})

	sess, err := svc.StartSession("wallet-a", mission.ID, 300)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if svc.Session(sess.ID, "wallet-b") != nil {
		t.Fatal("session leaked to another wallet")
	}
	if _, _, err := svc.Drop(sess.ID, "wallet-b", 0, 0, 0); err == nil {
		t.Fatal("drop accepted from a non-owner wallet")
	}
}

func TestStartSessionRejectsNonPlacement(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlacementService(db, NewLedgerService(db))

	mission := seedMission(t, db, models.Mission{
		Name:       "Quiz Mission",
		Kind:       models.MissionKindQuiz,
		BasePoints: 10,
	})

	if _, err := svc.StartSession("wallet-a", mission.ID, 300); err == nil {
		t.Fatal("placement session started for a quiz mission")
	}
}

func TestSessionStateTracksSolve(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlacementService(db, NewLedgerService(db))

	mission := seedMission(t, db, models.Mission{
		Name:       "Puzzle Four",
		Kind:       models.MissionKindPlacement,
		BasePoints: 10,
		Placement:  models.PlacementPayload{GridSize: 3},
	})

	sess, err := svc.StartSession("wallet-a", mission.ID, 300)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	if exists, solved := svc.sessionState(sess.ID, "wallet-a"); !exists || solved {
		t.Fatalf("fresh session state exists=%t solved=%t, want true/false", exists, solved)
	}
	if exists, _ := svc.sessionState(sess.ID, "wallet-b"); exists {
		t.Fatal("session state leaked to another wallet")
	}
	if exists, _ := svc.sessionState("no-such-session", "wallet-a"); exists {
		t.Fatal("unknown session reported as existing")
	}

	for i := 0; i < 9; i++ {
		col, row := CorrectCell(i, 3)
		if _, _, err := svc.Drop(sess.ID, "wallet-a", i, float64(col)*100, float64(row)*100); err != nil {
			t.Fatalf("Drop piece %d: %v", i, err)
		}
	}

	if exists, solved := svc.sessionState(sess.ID, "wallet-a"); !exists || !solved {
		t.Fatalf("solved session state exists=%t solved=%t, want true/true", exists, solved)
	}
}
