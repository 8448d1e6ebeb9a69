package unlock

import (
	"encoding/base64"
	"encoding/json"
)

// stateProp is the property key the registration record is stored under
// inside the serialized state document.
const stateProp = "registration"

// State is the persisted unlock record. It is a plain value object: the
// host application stores the serialized string wherever it keeps its
// settings and hands it back on the next run.
//
// Server-supplied messages and redirect URLs are deliberately not part of
// State; they are transient and travel on UnlockResult instead.
type State struct {
	unlocked bool
	email    string
}

// stateDoc is the on-disk shape: a small tree of key/value properties so
// the format can grow without breaking old strings. The registration
// record lives under the stateProp key.
type stateDoc map[string]json.RawMessage

type registrationProps struct {
	Unlocked bool   `json:"unlocked,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Unlocked reports whether the product is unlocked.
func (s *State) Unlocked() bool { return s.unlocked }

// SetUnlocked sets the unlock flag.
func (s *State) SetUnlocked(v bool) { s.unlocked = v }

// UserEmail returns the registered user's email, if known.
func (s *State) UserEmail() string { return s.email }

// SetUserEmail records the user's email address.
func (s *State) SetUserEmail(email string) { s.email = email }

// Serialize encodes the state as an opaque printable string for the host
// to persist. The encoding is an internal contract; the only guarantee is
// that DeserializeState round-trips it.
func (s *State) Serialize() string {
	props, err := json.Marshal(registrationProps{
		Unlocked: s.unlocked,
		Email:    s.email,
	})
	if err != nil {
		// registrationProps contains nothing unmarshalable.
		return ""
	}
	raw, err := json.Marshal(stateDoc{stateProp: props})
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(raw)
}

// DeserializeState decodes a previously serialized state string. An empty
// string is the normal first-run case and yields the default (locked)
// state; garbage input does the same rather than erroring, since a
// corrupt settings file must never stop the product from starting.
func DeserializeState(encoded string) *State {
	s := &State{}
	if encoded == "" {
		return s
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return s
	}
	var doc stateDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return s
	}
	var props registrationProps
	if err := json.Unmarshal(doc[stateProp], &props); err != nil {
		return s
	}
	s.unlocked = props.Unlocked
	s.email = props.Email
	return s
}
