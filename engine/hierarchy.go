package engine

import (
	"database/sql"

	"gorm.io/gorm"

	"github.com/propfund/propex/config"
	"github.com/propfund/propex/models"
	"github.com/propfund/propex/types"
)

// ParentLookup resolves a member id to its row. The pure chain walker takes
// it as a parameter so tests can feed an in-memory forest.
type ParentLookup func(id int64) (*models.Member, error)

// Hierarchy maintains the principal forest and authorizes creations.
type Hierarchy struct {
	DB       *gorm.DB
	MaxDepth int
	MaxRoots int
}

func NewHierarchy() *Hierarchy {
	return &Hierarchy{
		DB:       config.DataBase,
		MaxDepth: config.Vars.MaxDepth,
		MaxRoots: config.Vars.MaxRoots,
	}
}

// CanCreate is the creation guard: the candidate role must sit strictly
// deeper than the actor's, unless the actor carries the same-role
// capability and the roles match.
func CanCreate(actor *models.Member, candidateRole types.Role) error {
	if !types.ValidRole(candidateRole) {
		return ErrValidation.WithMeta("role", candidateRole)
	}
	if !actor.IsActive {
		return ErrInactiveActor
	}

	if types.RoleDepth(candidateRole) > types.RoleDepth(actor.Role) {
		return nil
	}

	if actor.CanCreateSameRole && candidateRole == actor.Role {
		return nil
	}

	return ErrForbiddenCreation
}

// WalkUpstream returns the ancestors of start nearest-first, stopping at a
// root. A repeated id or a walk longer than maxDepth aborts the walk.
func WalkUpstream(start *models.Member, lookup ParentLookup, maxDepth int) ([]*models.Member, error) {
	chain := make([]*models.Member, 0, maxDepth)
	seen := map[int64]bool{start.ID: true}

	current := start
	for current.HasParent() {
		if len(chain) >= maxDepth {
			return nil, ErrDepthExceeded
		}

		parent, err := lookup(current.ParentID.Int64)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, ErrNotFound
		}
		if seen[parent.ID] {
			return nil, ErrCycleDetected
		}

		seen[parent.ID] = true
		chain = append(chain, parent)
		current = parent
	}

	return chain, nil
}

func (h *Hierarchy) lookup(id int64) (*models.Member, error) {
	var member *models.Member

	result := h.DB.First(&member, "id = ?", id)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, ErrUnavailable
	}

	return member, nil
}

// UpstreamChain answers "who sits above this principal", nearest-first.
func (h *Hierarchy) UpstreamChain(member *models.Member) ([]*models.Member, error) {
	return WalkUpstream(member, h.lookup, h.MaxDepth)
}

// CreatePrincipal inserts a new member under the actor. Root creation goes
// through CreateRoot instead.
func (h *Hierarchy) CreatePrincipal(actor *models.Member, candidateRole types.Role, email, uid string) (*models.Member, error) {
	if err := CanCreate(actor, candidateRole); err != nil {
		return nil, err
	}

	chain, err := h.UpstreamChain(actor)
	if err != nil {
		return nil, err
	}
	if len(chain)+1 >= h.MaxDepth {
		return nil, ErrDepthExceeded
	}

	member := &models.Member{
		UID:      uid,
		Email:    email,
		Role:     candidateRole,
		ParentID: sql.NullInt64{Int64: actor.ID, Valid: true},
		IsActive: true,
	}

	if result := h.DB.Create(member); result.Error != nil {
		return nil, ErrUnavailable
	}

	return member, nil
}

// CreateRoot is the bootstrap path: a parentless supermaster. The number of
// roots is capped.
func (h *Hierarchy) CreateRoot(email, uid string) (*models.Member, error) {
	var count int64

	h.DB.Model(&models.Member{}).
		Where("role = ? AND parent_id IS NULL", types.RoleSupermaster).
		Count(&count)

	if count >= int64(h.MaxRoots) {
		return nil, ErrRootLimit
	}

	member := &models.Member{
		UID:               uid,
		Email:             email,
		Role:              types.RoleSupermaster,
		CanCreateSameRole: true,
		IsActive:          true,
	}

	if result := h.DB.Create(member); result.Error != nil {
		return nil, ErrUnavailable
	}

	return member, nil
}

// SetParent re-homes a principal. Admin only; past commissions stay
// attributed to the old chain.
func (h *Hierarchy) SetParent(actor *models.Member, member *models.Member, newParent *models.Member) error {
	if !actor.IsAdmin() {
		return ErrNotAuthorized
	}

	if err := checkReparent(member, newParent, h.lookup, h.MaxDepth); err != nil {
		return err
	}

	return h.DB.Model(member).
		Update("parent_id", sql.NullInt64{Int64: newParent.ID, Valid: true}).Error
}

// checkReparent rejects moves that would form a cycle or break the depth
// rule. Exposed to the orchestrating store only; pure over the lookup.
func checkReparent(member, newParent *models.Member, lookup ParentLookup, maxDepth int) error {
	if member.ID == newParent.ID {
		return ErrCycleDetected
	}

	if types.RoleDepth(newParent.Role) >= types.RoleDepth(member.Role) {
		if !(newParent.CanCreateSameRole && newParent.Role == member.Role) {
			return ErrForbiddenCreation
		}
	}

	chain, err := WalkUpstream(newParent, lookup, maxDepth)
	if err != nil {
		return err
	}

	for _, ancestor := range chain {
		if ancestor.ID == member.ID {
			return ErrCycleDetected
		}
	}

	if len(chain)+2 > maxDepth {
		return ErrDepthExceeded
	}

	return nil
}
