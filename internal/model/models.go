package model

// All returns every persisted model, in migration order
func All() []interface{} {
	return []interface{}{
		&User{},
		&State{},
		&Venue{},
		&System{},
		&Song{},
		&Request{},
		&ApiKey{},
		&Subscription{},
		&SupportTicket{},
		&SupportTicketMessage{},
		&SupportMessageAttachment{},
		&SupportTicketAudit{},
		&UserNote{},
	}
}
