// Package classifier decodes inbound client payloads into registrations,
// notifications or malformed messages.
package classifier

import (
	"errors"
	"fmt"

	"github.com/rickgao/comandas/internal/jsoncodec"
	"github.com/rickgao/comandas/internal/model"
)

// ErrMalformed is wrapped by every classification failure.
var ErrMalformed = errors.New("malformed message")

// Kind is the classification of an inbound payload.
type Kind int

const (
	KindMalformed Kind = iota
	KindRegistration
	KindNotification
)

func (k Kind) String() string {
	switch k {
	case KindRegistration:
		return "registration"
	case KindNotification:
		return "notification"
	default:
		return "malformed"
	}
}

// Message is a classified inbound payload. Only the fields of its Kind are
// set.
type Message struct {
	Kind Kind

	// Registration
	Role        model.Role
	TableNumber *int // customers only

	// Notification
	Type string
	Raw  []byte // exact inbound bytes, forwarded unmodified

	// Malformed
	Err error
}

// envelope is the union of both wire shapes. Pointers distinguish an absent
// field from its zero value.
type envelope struct {
	TipoCliente *string `json:"tipoCliente"`
	NumMesa     *int    `json:"numMesa"`
	Tipo        *string `json:"tipo"`
}

// Classify decodes payload. A registration takes precedence over a
// notification when both discriminators are present.
func Classify(payload []byte) Message {
	var env envelope
	if err := jsoncodec.Unmarshal(payload, &env); err != nil {
		return malformed(fmt.Errorf("decode: %w", err))
	}

	if env.TipoCliente != nil {
		role, ok := model.ParseRole(*env.TipoCliente)
		if !ok {
			return malformed(fmt.Errorf("unrecognized tipoCliente %q", *env.TipoCliente))
		}
		msg := Message{Kind: KindRegistration, Role: role}
		if role == model.RoleCustomer && env.NumMesa != nil {
			n := *env.NumMesa
			msg.TableNumber = &n
		}
		return msg
	}

	if env.Tipo != nil {
		return Message{Kind: KindNotification, Type: *env.Tipo, Raw: payload}
	}

	return malformed(errors.New("missing tipoCliente or tipo"))
}

func malformed(err error) Message {
	return Message{Kind: KindMalformed, Err: fmt.Errorf("%w: %w", ErrMalformed, err)}
}
