package models

import (
	"database/sql"
	"time"

	"github.com/propfund/propex/config"
	"github.com/propfund/propex/types"
)

type Member struct {
	ID                int64          `json:"id" gorm:"primaryKey"`
	UID               string         `json:"uid"`
	Email             string         `json:"email"`
	Role              types.Role     `json:"role" gorm:"default:trader"`
	ParentID          sql.NullInt64  `json:"parent_id"`
	CanCreateSameRole bool           `json:"can_create_same_role" gorm:"default:false"`
	IsActive          bool           `json:"is_active" gorm:"default:true"`
	IsVerified        bool           `json:"is_verified" gorm:"default:false"`
	PayoutsBlocked    bool           `json:"payouts_blocked" gorm:"default:false"`
	Username          sql.NullString `json:"username"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func (m *Member) IsRoot() bool {
	return m.Role == types.RoleSupermaster && !m.ParentID.Valid
}

func (m *Member) IsAdmin() bool {
	return m.Role == "admin" || m.Role == "superadmin"
}

func (m *Member) HasParent() bool {
	return m.ParentID.Valid
}

func (m *Member) GetParent() *Member {
	if !m.ParentID.Valid {
		return nil
	}

	var member *Member

	if result := config.DataBase.First(&member, "id = ?", m.ParentID.Int64); result.Error != nil {
		return nil
	}

	return member
}
