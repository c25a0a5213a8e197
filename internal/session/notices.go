package session

import "roamfree/internal/models"

// maxNotices bounds the pending queue when nobody drains it.
const maxNotices = 20

func (s *Session) push(title, description string) {
	s.pushNotice(models.Notice{Title: title, Description: description, Variant: models.NoticeDefault})
}

func (s *Session) pushError(title, description string) {
	s.pushNotice(models.Notice{Title: title, Description: description, Variant: models.NoticeDestructive})
}

// pushNotice must be called with s.mu held.
func (s *Session) pushNotice(n models.Notice) {
	s.notices = append(s.notices, n)
	if over := len(s.notices) - maxNotices; over > 0 {
		s.notices = append([]models.Notice(nil), s.notices[over:]...)
	}
}
