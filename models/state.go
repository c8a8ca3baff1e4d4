package models

import (
	"encoding/json"
	"time"
)

// The state tree mirrors what the web client keeps per user: identity and
// preferences, the momentum ledger, practice history, and league standing.
// All of it round-trips through the state store as plain JSON.

// ActivityRecord is one calendar day of practice. A day gets exactly one
// record: repeated activity the same day sums actions and keeps the highest
// effort.
type ActivityRecord struct {
	Date    Date    `json:"date"`
	Actions int     `json:"actions"`
	Effort  float64 `json:"effort"`
}

// MomentumState holds the streak state machine and the composite score.
type MomentumState struct {
	Score            int              `json:"score"`
	Streak           int              `json:"streak"`
	StreakPaused     bool             `json:"streakPaused"`
	PausedAt         Date             `json:"pausedAt"`
	LongestStreak    int              `json:"longestStreak"`
	LastActivityDate Date             `json:"lastActivityDate"`
	ComebackScore    float64          `json:"comebackScore"`
	ResumedOn        Date             `json:"resumedOn"`
	TotalDaysActive  int              `json:"totalDaysActive"`
	ActivityHistory  []ActivityRecord `json:"activityHistory"`
}

// SessionResult is one answered question inside a practice session.
// Immutable once appended.
type SessionResult struct {
	QuestionID     string    `json:"questionId"`
	Skill          string    `json:"skill"`
	SelectedOption string    `json:"selectedOption"`
	Correct        bool      `json:"correct"`
	Timestamp      time.Time `json:"timestamp"`
}

// SessionHistoryEntry is one completed practice session. Accuracy is the
// fraction correct in [0,1]; score-facing percentages are always recomputed
// from Questions.
type SessionHistoryEntry struct {
	ID        string          `json:"id"`
	Date      Date            `json:"date"`
	Mode      string          `json:"mode"`
	Questions []SessionResult `json:"questions"`
	Duration  int             `json:"duration"`
	Accuracy  float64         `json:"accuracy"`
}

// PracticeState tracks swipe-practice outcomes: the spaced-review backlog,
// mastered questions, and the append-only session history.
type PracticeState struct {
	Mastered        []string              `json:"mastered"`
	NeedsWork       []string              `json:"needsWork"`
	SessionHistory  []SessionHistoryEntry `json:"sessionHistory"`
	LastSessionDate Date                  `json:"lastSessionDate"`
	TotalSwipes     int                   `json:"totalSwipes"`
	Accuracy        float64               `json:"accuracy"`
}

// WeeklyStats are the league sub-scores surfaced to the client.
type WeeklyStats struct {
	Accuracy    float64 `json:"accuracy"`
	Consistency float64 `json:"consistency"`
	Improvement float64 `json:"improvement"`
}

// LeagueState holds the user's league standing.
type LeagueState struct {
	CurrentLeague string      `json:"currentLeague"`
	LeaguePoints  int         `json:"leaguePoints"`
	Rank          int         `json:"rank"`
	PeakLeague    string      `json:"peakLeague"`
	WeeklyStats   WeeklyStats `json:"weeklyStats"`
}

// UserState mirrors profile fields the engines read (daily commitment for
// recommendations, skill targets for dashboards).
type UserState struct {
	Name               string             `json:"name"`
	TargetScore        float64            `json:"targetScore"`
	CurrentScores      map[string]float64 `json:"currentScores"`
	OnboardingComplete bool               `json:"onboardingComplete"`
	JoinedDate         Date               `json:"joinedDate"`
	DailyCommitment    int                `json:"dailyCommitment"`
}

// Achievement is an unlocked badge, appended by the achievements engine.
type Achievement struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UnlockedAt  time.Time `json:"unlockedAt"`
}

// ProfileState holds public-facing profile data.
type ProfileState struct {
	Visibility   string        `json:"visibility"`
	Bio          string        `json:"bio"`
	Achievements []Achievement `json:"achievements"`
}

// SettingsState holds client preferences the server just echoes back.
type SettingsState struct {
	Notifications bool   `json:"notifications"`
	Theme         string `json:"theme"`
}

// Skills practiced in the app, in display order. Skill balance is computed
// over exactly these four.
var Skills = []string{"reading", "writing", "listening", "speaking"}

// DefaultState builds the full default state tree. Loading a saved snapshot
// merges onto a fresh copy of this tree so fields introduced later keep
// their defaults.
func DefaultState() map[string]any {
	return map[string]any{
		"user": toTree(UserState{
			TargetScore:     7.5,
			CurrentScores:   map[string]float64{"reading": 0, "writing": 0, "listening": 0, "speaking": 0},
			DailyCommitment: 15,
		}),
		"momentum": toTree(MomentumState{
			ActivityHistory: []ActivityRecord{},
		}),
		"practice": toTree(PracticeState{
			Mastered:       []string{},
			NeedsWork:      []string{},
			SessionHistory: []SessionHistoryEntry{},
		}),
		"leagues": toTree(LeagueState{
			CurrentLeague: "bronze",
			PeakLeague:    "bronze",
		}),
		"profile": toTree(ProfileState{
			Visibility:   "public",
			Achievements: []Achievement{},
		}),
		"settings": toTree(SettingsState{
			Notifications: true,
			Theme:         "dark",
		}),
	}
}

// toTree converts a typed state struct into the generic map form the store
// keeps internally.
func toTree(v any) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]any{}
	}
	return m
}
