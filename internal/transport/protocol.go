package transport

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/frictionlab/internal/world"
)

// Path is where Server expects websocket upgrades when mounted by ListenAndServe.
const Path = "/world"

type Op string

const (
	OpRegister Op = "register"
	OpNames    Op = "names"
	OpEntity   Op = "entity"
	OpLinks    Op = "links"
	OpLink     Op = "link"
	OpForce    Op = "force"
	OpPosition Op = "position"
	OpVelocity Op = "velocity"
	OpAdvance  Op = "advance"
)

// Request is one call against the remote world. Descriptor content travels
// inline since file paths mean nothing on the other side.
type Request struct {
	ID         string     `json:"id"`
	Op         Op         `json:"op"`
	Entity     string     `json:"entity,omitempty"`
	Link       string     `json:"link,omitempty"`
	Descriptor []byte     `json:"descriptor,omitempty"`
	Pose       *WirePose  `json:"pose,omitempty"`
	Force      mgl64.Vec3 `json:"force"`
	Duration   float64    `json:"duration,omitempty"`
	Steps      int        `json:"steps,omitempty"`
}

type Response struct {
	ID     string     `json:"id"`
	Code   Code       `json:"code,omitempty"`
	Error  string     `json:"error,omitempty"`
	Names  []string   `json:"names,omitempty"`
	Vector mgl64.Vec3 `json:"vector"`
}

// WirePose carries the orientation as (w, x, y, z).
type WirePose struct {
	Position    [3]float64 `json:"position"`
	Orientation [4]float64 `json:"orientation"`
}

func encodePose(p world.Pose) *WirePose {
	q := p.Orientation
	return &WirePose{
		Position:    p.Position,
		Orientation: [4]float64{q.W, q.V.X(), q.V.Y(), q.V.Z()},
	}
}

func (p *WirePose) decode() world.Pose {
	if p == nil {
		return world.NewPose(0, 0, 0)
	}
	o := p.Orientation
	q := mgl64.Quat{W: o[0], V: mgl64.Vec3{o[1], o[2], o[3]}}
	if q.Len() == 0 {
		q = mgl64.QuatIdent()
	}
	return world.Pose{Position: p.Position, Orientation: q}
}

type Code string

const (
	CodeNotFound        Code = "not_found"
	CodeConflict        Code = "conflict"
	CodeInvalidArgument Code = "invalid_argument"
	CodeMalformed       Code = "malformed"
	CodeClosed          Code = "closed"
	CodeInternal        Code = "internal"
)

var codes = []struct {
	code Code
	err  error
}{
	{CodeNotFound, world.ErrNotFound},
	{CodeConflict, world.ErrRegistrationConflict},
	{CodeInvalidArgument, world.ErrInvalidArgument},
	{CodeMalformed, world.ErrMalformed},
	{CodeClosed, world.ErrClosed},
}

func codeOf(err error) Code {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// RemoteError is a failure reported by the server. It unwraps to the world
// error matching its code.
type RemoteError struct {
	Code    Code
	Message string
}

func (e *RemoteError) Error() string {
	return "remote: " + e.Message
}

func (e *RemoteError) Unwrap() error {
	for _, c := range codes {
		if c.code == e.Code {
			return c.err
		}
	}
	return nil
}
