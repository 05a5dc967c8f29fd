package models

import "time"

const (
	RoleTenant = "tenant"
	RoleStaff  = "staff"
	RoleAdmin  = "admin"
)

type Role struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"unique;not null"          json:"name"`
}

type AuthUser struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"unique;not null"          json:"username"`
	Email        string    `gorm:"unique;not null"          json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	RoleID       uint      `gorm:"index;not null"           json:"role_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// RefreshToken stores the jti of an issued refresh token, never the raw token.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"index;not null"           json:"user_id"`
	JTI       string    `gorm:"uniqueIndex;not null"     json:"jti"`
	ExpiresAt time.Time `gorm:"not null"                 json:"expires_at"`
	Revoked   bool      `gorm:"default:false"            json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is correlated 1:1 with a refresh token by sharing its jti as SessionID.
type Session struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"index;not null"           json:"user_id"`
	SessionID string    `gorm:"uniqueIndex;not null"     json:"session_id"`
	UserAgent string    `gorm:"size:255"                 json:"user_agent"`
	IPAddress string    `gorm:"size:45"                  json:"ip_address"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `gorm:"default:false"            json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

type UserProfile struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint   `gorm:"uniqueIndex;not null"     json:"user_id"`
	FullName  string `gorm:"size:100;not null"        json:"full_name"`
	Phone     string `gorm:"size:20"                  json:"phone"`
	Status    string `gorm:"size:8;default:prospect"  json:"status"`
}

type MaintenanceRequest struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	TenantID     uint       `gorm:"index;not null"           json:"tenant_id"`
	StaffID      uint       `gorm:"index"                    json:"staff_id"`
	RoomID       uint       `gorm:"not null"                 json:"room_id"`
	Description  string     `json:"description"`
	Priority     string     `gorm:"size:10;default:medium"   json:"priority"`
	Status       string     `gorm:"size:15;default:open"     json:"status"`
	RequestDate  time.Time  `json:"request_date"`
	ResolvedDate *time.Time `json:"resolved_date,omitempty"`
}

type AuditEntry struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorID   uint      `gorm:"index"                    json:"actor_id"`
	Table     string    `gorm:"column:table_name;size:50" json:"table"`
	ItemID    uint      `json:"item_id"`
	Action    string    `gorm:"size:10"                  json:"action"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

func (AuditEntry) TableName() string { return "audit_log" }
