package model

import "time"

// Department はスキー・スノーボードスクールの部門を表す。
type Department struct {
	ID          string
	Name        string
	Description string
	SortOrder   int
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ShiftType はシフトの時間帯区分（午前・午後・ナイター等）を表す。
type ShiftType struct {
	ID        string
	Name      string
	StartTime string // "09:00" 形式
	EndTime   string // "12:00" 形式
	Color     string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Certification はインストラクター資格（SAJ/SIA等）を表す。
type Certification struct {
	ID           string
	Name         string
	Organization string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Instructor はスクール所属のインストラクターを表す。
// 物理削除はせずIsActiveで論理無効化する。
type Instructor struct {
	ID               string
	LastName         string
	FirstName        string
	LastNameKana     string
	FirstNameKana    string
	IsActive         bool
	CertificationIDs []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Shift は特定日・部門・シフト区分のシフト枠を表す。
// (Date, DepartmentID, ShiftTypeID) の組は一意であり、重複時は
// マージ/置換の明示的な解決フローに入る。
type Shift struct {
	ID           string
	Date         time.Time // 日付のみ有効（時刻は00:00 UTC）
	DepartmentID string
	ShiftTypeID  string
	Description  string
	// AssignedInstructorIDs はこのシフトに割り当てられたインストラクターのID集合。
	AssignedInstructorIDs []string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// ConflictResolution はシフト重複時の解決方法を表す。
type ConflictResolution string

const (
	// ResolutionMerge は既存の割り当てに新規入力の割り当てを統合する。
	ResolutionMerge ConflictResolution = "merge"
	// ResolutionReplace は既存シフトの内容を新規入力で上書きする。
	ResolutionReplace ConflictResolution = "replace"
)

// ShiftConflict はシフト一意制約違反時にクライアントへ返す構造化された衝突情報。
// この時点では何も変更されておらず、クライアントの明示的な選択を待つ。
type ShiftConflict struct {
	Existing *Shift
	CanForce bool
	Options  []string // "merge", "replace", "cancel"
}
