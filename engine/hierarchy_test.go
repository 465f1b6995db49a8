package engine

import (
	"database/sql"
	"testing"

	"github.com/propfund/propex/models"
	"github.com/propfund/propex/types"
)

func member(id int64, role types.Role, parentID int64) *models.Member {
	m := &models.Member{ID: id, Role: role, IsActive: true}
	if parentID != 0 {
		m.ParentID = sql.NullInt64{Int64: parentID, Valid: true}
	}
	return m
}

func forestLookup(forest map[int64]*models.Member) ParentLookup {
	return func(id int64) (*models.Member, error) {
		return forest[id], nil
	}
}

func TestWalkUpstream_ThreeLevels(t *testing.T) {
	forest := map[int64]*models.Member{
		1: member(1, types.RoleSupermaster, 0),
		2: member(2, types.RoleMaster, 1),
		3: member(3, types.RoleAgent, 2),
		4: member(4, types.RoleTrader, 3),
	}

	chain, err := WalkUpstream(forest[4], forestLookup(forest), 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(chain) != 3 {
		t.Fatalf("expected chain of 3, got %d", len(chain))
	}
	if chain[0].ID != 3 || chain[1].ID != 2 || chain[2].ID != 1 {
		t.Errorf("expected nearest-first order [3 2 1], got [%d %d %d]", chain[0].ID, chain[1].ID, chain[2].ID)
	}
}

func TestWalkUpstream_Cycle(t *testing.T) {
	forest := map[int64]*models.Member{
		1: member(1, types.RoleMaster, 2),
		2: member(2, types.RoleAgent, 1),
	}

	_, err := WalkUpstream(forest[2], forestLookup(forest), 8)
	if !IsCode(err, ErrCycleDetected.Code) {
		t.Errorf("expected cycle_detected, got %v", err)
	}
}

func TestWalkUpstream_DepthExceeded(t *testing.T) {
	forest := map[int64]*models.Member{}
	for i := int64(1); i <= 12; i++ {
		forest[i] = member(i, types.RoleAgent, i-1)
	}
	forest[1].ParentID = sql.NullInt64{}

	_, err := WalkUpstream(forest[12], forestLookup(forest), 8)
	if !IsCode(err, ErrDepthExceeded.Code) {
		t.Errorf("expected depth_exceeded, got %v", err)
	}
}

func TestWalkUpstream_MissingParent(t *testing.T) {
	forest := map[int64]*models.Member{
		2: member(2, types.RoleAgent, 99),
	}

	_, err := WalkUpstream(forest[2], forestLookup(forest), 8)
	if !IsCode(err, ErrNotFound.Code) {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestCanCreate_DeeperRole(t *testing.T) {
	actor := member(1, types.RoleMaster, 0)

	if err := CanCreate(actor, types.RoleAgent); err != nil {
		t.Errorf("master should create agent, got %v", err)
	}
	if err := CanCreate(actor, types.RoleTrader); err != nil {
		t.Errorf("master should create trader, got %v", err)
	}
}

func TestCanCreate_SameRoleNeedsCapability(t *testing.T) {
	actor := member(1, types.RoleMaster, 0)

	if err := CanCreate(actor, types.RoleMaster); !IsCode(err, ErrForbiddenCreation.Code) {
		t.Errorf("expected forbidden_creation, got %v", err)
	}

	actor.CanCreateSameRole = true
	if err := CanCreate(actor, types.RoleMaster); err != nil {
		t.Errorf("capability holder should create same role, got %v", err)
	}
	if err := CanCreate(actor, types.RoleSupermaster); !IsCode(err, ErrForbiddenCreation.Code) {
		t.Errorf("capability must not allow shallower roles, got %v", err)
	}
}

func TestCanCreate_UnknownRoleRejected(t *testing.T) {
	actor := member(1, types.RoleAgent, 0)

	// an unknown role sits below trader in RoleDepth and must not slip
	// past the depth comparison
	if err := CanCreate(actor, "janitor"); !IsCode(err, ErrValidation.Code) {
		t.Errorf("expected invalid_params for unknown role, got %v", err)
	}
	if err := CanCreate(actor, ""); !IsCode(err, ErrValidation.Code) {
		t.Errorf("expected invalid_params for empty role, got %v", err)
	}
}

func TestCanCreate_InactiveActor(t *testing.T) {
	actor := member(1, types.RoleMaster, 0)
	actor.IsActive = false

	if err := CanCreate(actor, types.RoleAgent); !IsCode(err, ErrInactiveActor.Code) {
		t.Errorf("expected inactive_actor, got %v", err)
	}
}

func TestCheckReparent_RejectsCycle(t *testing.T) {
	forest := map[int64]*models.Member{
		1: member(1, types.RoleSupermaster, 0),
		2: member(2, types.RoleMaster, 1),
		3: member(3, types.RoleAgent, 2),
	}

	// moving 2 under its own descendant 3
	err := checkReparent(forest[2], forest[3], forestLookup(forest), 8)
	if !IsCode(err, ErrCycleDetected.Code) {
		t.Errorf("expected cycle_detected, got %v", err)
	}

	if err := checkReparent(forest[3], forest[1], forestLookup(forest), 8); err != nil {
		t.Errorf("moving agent under root should pass, got %v", err)
	}
}

func TestCheckReparent_SelfParent(t *testing.T) {
	m := member(2, types.RoleMaster, 1)

	err := checkReparent(m, m, forestLookup(nil), 8)
	if !IsCode(err, ErrCycleDetected.Code) {
		t.Errorf("expected cycle_detected, got %v", err)
	}
}
