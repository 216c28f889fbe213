package session

// Logout settles every invitation still referencing s and then detaches
// s's player identity: an invitation s originated is revoked, one s
// received is declined, and if neither applies (the invitation has already
// progressed to an in-progress game) s resigns it instead, which posts the
// result while s's player is still attached. It is a no-op if s was
// already logged out.
func (s *Session) Logout() {
	if s.Player() == nil {
		return
	}
	defer s.clearPlayer()
	for _, slot := range s.openInvitations() {
		var err error
		if slot.Inv.Source == s {
			err = s.RevokeInvitation(slot.ID)
		} else {
			err = s.DeclineInvitation(slot.ID)
		}
		if err != nil {
			_ = s.ResignGame(slot.ID)
		}
	}
}
