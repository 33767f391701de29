package models

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
	"time"
)

// JoinCodeLength is the number of characters in every classroom join code.
const JoinCodeLength = 8

// joinCodeAlphabet excludes visually ambiguous glyphs (0/O, 1/I/L) so codes
// survive being read aloud or copied off a whiteboard.
const joinCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

var joinCodePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

// Classroom represents one project assignment owned by a single teacher.
// Students enter via the join code; the classroom owns its memberships and
// submissions and cascades deletes to both.
type Classroom struct {
	ID              uint                  `gorm:"primaryKey" json:"id"`
	Title           string                `gorm:"size:200;not null" json:"title"`
	Description     string                `gorm:"type:text" json:"description"`
	Subject         string                `gorm:"size:100" json:"subject"`
	RequirementsURL string                `gorm:"size:512" json:"requirements_url"`
	JoinCode        string                `gorm:"size:8;uniqueIndex;not null" json:"join_code"`
	TeacherID       uint                  `gorm:"index;not null" json:"teacher_id"`
	Teacher         User                  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"teacher"`
	IsActive        bool                  `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	Memberships     []ClassroomMembership `json:"-"`
	Submissions     []ProjectSubmission   `json:"-"`
}

// ClassroomMembership links a student to a classroom. A student joins a
// classroom at most once; teachers never hold memberships.
type ClassroomMembership struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ClassroomID uint      `gorm:"not null;uniqueIndex:idx_classroom_student" json:"classroom_id"`
	StudentID   uint      `gorm:"not null;uniqueIndex:idx_classroom_student" json:"student_id"`
	Classroom   Classroom `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"classroom"`
	Student     User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
	JoinedAt    time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// GenerateJoinCode produces a random 8-character code from the unambiguous
// alphabet. Uniqueness is enforced by the classroom table constraint, not
// here; callers retry on the rare collision.
func GenerateJoinCode() string {
	var b strings.Builder
	b.Grow(JoinCodeLength)
	max := big.NewInt(int64(len(joinCodeAlphabet)))
	for i := 0; i < JoinCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken.
			panic(err)
		}
		b.WriteByte(joinCodeAlphabet[n.Int64()])
	}
	return b.String()
}

// NormalizeJoinCode uppercases and trims a user-entered code.
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidJoinCode reports whether a normalized code has a plausible shape.
func IsValidJoinCode(code string) bool {
	return joinCodePattern.MatchString(NormalizeJoinCode(code))
}
