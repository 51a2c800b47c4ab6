// Package permissions holds the per-action authorization policy attached to
// an account. A Policy only lists overrides: any action it does not name is
// governed by the platform default.
package permissions

import (
	"fmt"
	"sort"
	"strings"
)

type Action string

const (
	Send               Action = "send"
	Receive            Action = "receive"
	SetVerificationKey Action = "setVerificationKey"
	IncrementNonce     Action = "incrementNonce"
	EditState          Action = "editState"
	SetPermissions     Action = "setPermissions"
	Access             Action = "access"
)

var Actions = []Action{Send, Receive, SetVerificationKey, IncrementNonce, EditState, SetPermissions, Access}

// Auth is the authorization an action requires.
type Auth uint8

const (
	// Default is only meaningful as an override: keep the platform default.
	Default Auth = iota
	None
	Signature
	Proof
	ProofOrSignature
	Impossible
)

var authNames = map[Auth]string{
	Default:          "default",
	None:             "none",
	Signature:        "signature",
	Proof:            "proof",
	ProofOrSignature: "proofOrSignature",
	Impossible:       "impossible",
}

func (a Auth) String() string {
	if s, ok := authNames[a]; ok {
		return s
	}
	return fmt.Sprintf("Auth(%d)", uint8(a))
}

func ParseAuth(s string) (Auth, error) {
	for a, name := range authNames {
		if strings.EqualFold(s, name) {
			return a, nil
		}
	}
	return Default, fmt.Errorf("unknown authorization %q", s)
}

// Kind is the authorization an account update actually carries.
type Kind uint8

const (
	KindNone Kind = iota
	KindSignature
	KindProof
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindSignature:
		return "signature"
	case KindProof:
		return "proof"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Allows reports whether an update authorized with k may perform an action
// requiring a. Default must be resolved through a Policy first.
func (a Auth) Allows(k Kind) bool {
	switch a {
	case None:
		return true
	case Signature:
		return k == KindSignature
	case Proof:
		return k == KindProof
	case ProofOrSignature:
		return k == KindSignature || k == KindProof
	}
	return false
}

type Policy map[Action]Auth

// PlatformDefault is the policy of a deployed zkApp that sets no overrides.
func PlatformDefault() Policy {
	return Policy{
		EditState:          Proof,
		Send:               Proof,
		Receive:            None,
		SetVerificationKey: Signature,
		SetPermissions:     Signature,
		IncrementNonce:     Signature,
		Access:             None,
	}
}

// Initial is the policy of a freshly created key account.
func Initial() Policy {
	return Policy{
		EditState:          Signature,
		Send:               Signature,
		Receive:            None,
		SetVerificationKey: Signature,
		SetPermissions:     Signature,
		IncrementNonce:     Signature,
		Access:             None,
	}
}

func (p Policy) Get(a Action) Auth {
	if v, ok := p[a]; ok && v != Default {
		return v
	}
	return PlatformDefault()[a]
}

// With returns a copy of p with overrides applied.
func (p Policy) With(overrides Policy) Policy {
	ret := p.Clone()
	for a, v := range overrides {
		if v == Default {
			ret[a] = PlatformDefault()[a]
			continue
		}
		ret[a] = v
	}
	return ret
}

func (p Policy) Clone() Policy {
	ret := make(Policy, len(p))
	for a, v := range p {
		ret[a] = v
	}
	return ret
}

func (p Policy) Equal(o Policy) bool {
	for _, a := range p.actions(o) {
		if p.Get(a) != o.Get(a) {
			return false
		}
	}
	return true
}

func (p Policy) actions(o Policy) []Action {
	seen := make(map[Action]bool, len(Actions))
	var ret []Action
	for _, src := range []Policy{PlatformDefault(), p, o} {
		for a := range src {
			if !seen[a] {
				seen[a] = true
				ret = append(ret, a)
			}
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

// Sorted lists every action governed by p with its effective requirement.
func (p Policy) Sorted() []Action {
	return p.actions(nil)
}

func (p Policy) String() string {
	var b strings.Builder
	for i, a := range p.Sorted() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", a, p.Get(a))
	}
	return b.String()
}
