package members

import (
	"time"

	"github.com/gymcomplete/internal/dates"
	"github.com/gymcomplete/internal/keys"
)

type Member struct {
	ID           int          `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Subscription Subscription `json:"subscription"`
	// ClassHistory holds ids of classes the member enrolled into, in
	// enrollment order.
	ClassHistory []int `json:"classHistory"`
}

type Subscription struct {
	Plan  string     `json:"plan"`
	VIP   bool       `json:"vip"`
	Start dates.Date `json:"start"`
	End   dates.Date `json:"end"`
}

// ActiveAt reports whether the subscription covers the given instant.
func (s Subscription) ActiveAt(t time.Time) bool {
	day := dates.FromTime(t)
	return !day.Before(s.Start) && !day.After(s.End)
}

func (m Member) Encode(key *keys.Key) (*EncodedMember, error) {
	name, err := key.Encrypt([]byte(m.Name))
	if err != nil {
		return nil, err
	}
	email, err := key.Encrypt([]byte(m.Email))
	if err != nil {
		return nil, err
	}
	return &EncodedMember{
		ID:           m.ID,
		Name:         name,
		Email:        email,
		Subscription: m.Subscription,
		ClassHistory: m.ClassHistory,
	}, nil
}

// EncodedMember is the at-rest form: personal fields are encrypted.
type EncodedMember struct {
	ID           int          `json:"id"`
	Name         []byte       `json:"name"`
	Email        []byte       `json:"email"`
	Subscription Subscription `json:"subscription"`
	ClassHistory []int        `json:"classHistory"`
}

func (e EncodedMember) Decode(key *keys.Key) (*Member, error) {
	name, err := key.Decrypt(e.Name)
	if err != nil {
		return nil, err
	}
	email, err := key.Decrypt(e.Email)
	if err != nil {
		return nil, err
	}
	return &Member{
		ID:           e.ID,
		Name:         string(name),
		Email:        string(email),
		Subscription: e.Subscription,
		ClassHistory: e.ClassHistory,
	}, nil
}
