package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ScavengerResult describes a scavenger hunt after recording one item
type ScavengerResult struct {
	Found          IDSet
	ItemsRemaining int
	Completed      bool
	Granted        bool
}

// AuthenticateAdmin checks an administrator's identity and secret
func (s *Service) AuthenticateAdmin(identity, secret string) (*User, error) {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	for _, u := range s.users {
		if u.Role != RoleAdmin || u.Identity != identity {
			continue
		}
		if s.credentials.Check(u.Credential, secret) {
			return u.Clone(), nil
		}
	}
	return nil, ErrAuthFailed
}

// ResolveOrCreateGuest returns the guest with the given identity, creating
// one on first sight. Matching ignores case.
func (s *Service) ResolveOrCreateGuest(ctx context.Context, identity string) (*User, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, ErrInvalidIdentity
	}

	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	for _, u := range s.users {
		if u.Role == RoleGuest && strings.EqualFold(u.Identity, identity) {
			return u.Clone(), nil
		}
	}

	guest := &User{
		ID:                    s.nextUserIDLocked(),
		Identity:              identity,
		Role:                  RoleGuest,
		CompletedChallengeIDs: IDSet{},
		ScavengerProgress:     make(map[int64]IDSet),
	}
	s.users = append(s.users, guest)
	s.persistUsersLocked(ctx)

	log.WithFields(log.Fields{"user_id": guest.ID, "identity": identity}).Info("guest created")
	return guest.Clone(), nil
}

// GrantReward adds points for a challenge the user has not completed yet.
// It reports false without changes when the challenge was already completed.
func (s *Service) GrantReward(ctx context.Context, userID, challengeID int64, points int) (bool, error) {
	if points < 0 {
		return false, fmt.Errorf("points must not be negative")
	}

	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	u := s.userLocked(userID)
	if u == nil {
		log.WithFields(log.Fields{"user_id": userID, "challenge_id": challengeID}).Warn("reward for unknown user dropped")
		return false, ErrUnknownUser
	}
	if !s.grantLocked(u, challengeID, points) {
		return false, nil
	}
	s.persistUsersLocked(ctx)
	return true, nil
}

// grantLocked increments points and records completion as one step.
// Caller holds usersMu.
func (s *Service) grantLocked(u *User, challengeID int64, points int) bool {
	if u.CompletedChallengeIDs.Has(challengeID) {
		return false
	}
	u.Points += points
	u.CompletedChallengeIDs.Add(challengeID)

	log.WithFields(log.Fields{
		"user_id":      u.ID,
		"challenge_id": challengeID,
		"points":       points,
		"total":        u.Points,
	}).Info("reward granted")
	return true
}

// RecordScavengerProgress marks one scavenger item as found and grants the
// challenge once every item is found.
func (s *Service) RecordScavengerProgress(ctx context.Context, userID, challengeID int64, itemIndex int) (ScavengerResult, error) {
	ch, err := s.Challenge(challengeID)
	if err != nil {
		return ScavengerResult{}, err
	}
	hunt, ok := ch.Rules.(ScavengerHuntRules)
	if !ok {
		return ScavengerResult{}, fmt.Errorf("challenge %d is not a scavenger hunt", challengeID)
	}
	if itemIndex < 0 || itemIndex >= len(hunt.Items) {
		return ScavengerResult{}, ErrInvalidItem
	}

	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	u := s.userLocked(userID)
	if u == nil {
		return ScavengerResult{}, ErrUnknownUser
	}
	if u.CompletedChallengeIDs.Has(challengeID) {
		return ScavengerResult{Completed: true, Found: u.ScavengerProgress[challengeID].Clone()}, nil
	}

	if u.ScavengerProgress == nil {
		u.ScavengerProgress = make(map[int64]IDSet)
	}
	found := u.ScavengerProgress[challengeID]
	if found == nil {
		found = IDSet{}
		u.ScavengerProgress[challengeID] = found
	}
	found.Add(int64(itemIndex))

	remaining := 0
	for i := range hunt.Items {
		if !found.Has(int64(i)) {
			remaining++
		}
	}

	result := ScavengerResult{ItemsRemaining: remaining}
	if remaining == 0 {
		result.Granted = s.grantLocked(u, challengeID, ch.Points)
		result.Completed = true
	}
	result.Found = found.Clone()

	s.persistUsersLocked(ctx)
	return result, nil
}

// User returns a copy of the user with the given id
func (s *Service) User(userID int64) (*User, error) {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	u := s.userLocked(userID)
	if u == nil {
		return nil, ErrUnknownUser
	}
	return u.Clone(), nil
}

// Users returns copies of all users ordered by id
func (s *Service) Users() []*User {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	out := make([]*User, len(s.users))
	for i, u := range s.users {
		out[i] = u.Clone()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Leaderboard returns guests ordered by points, highest first
func (s *Service) Leaderboard() []*User {
	var guests []*User
	for _, u := range s.Users() {
		if u.Role == RoleGuest {
			guests = append(guests, u)
		}
	}
	sort.SliceStable(guests, func(i, j int) bool { return guests[i].Points > guests[j].Points })
	return guests
}

// UpdateUserPoints sets a user's point total (admin correction)
func (s *Service) UpdateUserPoints(ctx context.Context, userID int64, points int) (*User, error) {
	if points < 0 {
		return nil, fmt.Errorf("points must not be negative")
	}

	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	u := s.userLocked(userID)
	if u == nil {
		return nil, ErrUnknownUser
	}
	u.Points = points
	s.persistUsersLocked(ctx)
	return u.Clone(), nil
}

// DeleteUser removes a guest account
func (s *Service) DeleteUser(ctx context.Context, userID int64) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	for i, u := range s.users {
		if u.ID != userID {
			continue
		}
		if u.Role == RoleAdmin {
			return ErrForbidden
		}
		s.users = append(s.users[:i], s.users[i+1:]...)
		s.persistUsersLocked(ctx)
		return nil
	}
	return ErrUnknownUser
}

// IsAdmin reports whether the user exists and is an administrator
func (s *Service) IsAdmin(userID int64) bool {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	u := s.userLocked(userID)
	return u != nil && u.Role == RoleAdmin
}

// userLocked finds a user by id. Caller holds usersMu.
func (s *Service) userLocked(userID int64) *User {
	for _, u := range s.users {
		if u.ID == userID {
			return u
		}
	}
	return nil
}

// nextUserIDLocked returns one past the highest id. Caller holds usersMu.
func (s *Service) nextUserIDLocked() int64 {
	var maxID int64
	for _, u := range s.users {
		if u.ID > maxID {
			maxID = u.ID
		}
	}
	return maxID + 1
}
