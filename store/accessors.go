package store

import (
	"encoding/json"

	"github.com/leaplabs/leap-server/models"
)

// Typed accessors over the generic tree. Reads decode the subtree into its
// struct form (missing fields fall back to zero/default values); writes
// encode back to the generic form so generic Get/Subscribe keep working.

// Momentum returns the momentum subtree.
func (s *Store) Momentum() models.MomentumState {
	var m models.MomentumState
	s.decode("momentum", &m)
	return m
}

// PutMomentum replaces the momentum subtree.
func (s *Store) PutMomentum(m models.MomentumState) {
	s.encode("momentum", m)
}

// Practice returns the practice subtree.
func (s *Store) Practice() models.PracticeState {
	var p models.PracticeState
	s.decode("practice", &p)
	return p
}

// PutPractice replaces the practice subtree.
func (s *Store) PutPractice(p models.PracticeState) {
	s.encode("practice", p)
}

// League returns the league subtree.
func (s *Store) League() models.LeagueState {
	var l models.LeagueState
	s.decode("leagues", &l)
	if l.CurrentLeague == "" {
		l.CurrentLeague = "bronze"
	}
	if l.PeakLeague == "" {
		l.PeakLeague = "bronze"
	}
	return l
}

// PutLeague replaces the league subtree.
func (s *Store) PutLeague(l models.LeagueState) {
	s.encode("leagues", l)
}

// UserState returns the user subtree.
func (s *Store) UserState() models.UserState {
	var u models.UserState
	s.decode("user", &u)
	if u.DailyCommitment <= 0 {
		u.DailyCommitment = 15
	}
	return u
}

// PutUserState replaces the user subtree.
func (s *Store) PutUserState(u models.UserState) {
	s.encode("user", u)
}

// Profile returns the profile subtree.
func (s *Store) Profile() models.ProfileState {
	var p models.ProfileState
	s.decode("profile", &p)
	return p
}

// PutProfile replaces the profile subtree.
func (s *Store) PutProfile(p models.ProfileState) {
	s.encode("profile", p)
}

func (s *Store) decode(path string, out any) {
	value := s.Get(path)
	if value == nil {
		return
	}
	b, err := json.Marshal(value)
	if err != nil {
		s.logw("state decode failed", err)
		return
	}
	if err := json.Unmarshal(b, out); err != nil {
		s.logw("state decode failed", err)
	}
}

func (s *Store) encode(path string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.logw("state encode failed", err)
		return
	}
	var tree map[string]any
	if err := json.Unmarshal(b, &tree); err != nil {
		s.logw("state encode failed", err)
		return
	}
	s.Set(path, tree)
}
