// Package httpapi exposes a flipdot display over HTTP.
//
// Routes:
//
//	GET  /text?text=[&X=][&Y=][&font=][&clear]   X and Y default to 0
//	POST /raw               JSON array of byte values
//	GET  /fill
//	GET  /clear
//	GET  /backlight[?on=]   without on the backlight switches off
//	GET  /reverse
//	GET  /pixel?x=&y=[&on=][&force]
//	GET  /io
//
// A busy display answers 429, invalid parameters 400 and operations the
// display can't do 501.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bmizerany/pat"
	"github.com/sirupsen/logrus"

	"github.com/BeatGlow/flipdot"
)

// Display is what every flipdot driver offers.
type Display interface {
	SendText(ctx context.Context, text string, x, y int) error
	FillWhite(ctx context.Context) error
	Clear(ctx context.Context) error
	SetBacklight(on bool) error
	Status() flipdot.Status
}

// Optional driver capabilities.
type (
	FontSender interface {
		SendTextFont(ctx context.Context, text string, x, y int, font byte) error
	}
	RawSender interface {
		SendRaw(ctx context.Context, data []byte) error
	}
	Inverter interface {
		Invert(ctx context.Context) (bool, error)
	}
	PixelPusher interface {
		PushPixel(ctx context.Context, x, y int, on, force bool) error
	}
)

var errParam = errors.New("invalid parameter")

// Server routes requests to a display.
type Server struct {
	display Display
	timeout time.Duration
	log     logrus.FieldLogger
	mux     *pat.PatternServeMux
}

// New returns a handler for d. Drawing calls that block longer than timeout
// (for example on a full update queue) are abandoned.
func New(d Display, timeout time.Duration, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := &Server{
		display: d,
		timeout: timeout,
		log:     log,
		mux:     pat.New(),
	}
	s.mux.Get("/text", http.HandlerFunc(s.text))
	s.mux.Post("/raw", http.HandlerFunc(s.raw))
	s.mux.Get("/fill", http.HandlerFunc(s.fill))
	s.mux.Get("/clear", http.HandlerFunc(s.clear))
	s.mux.Get("/backlight", http.HandlerFunc(s.backlight))
	s.mux.Get("/reverse", http.HandlerFunc(s.reverse))
	s.mux.Get("/pixel", http.HandlerFunc(s.pixel))
	s.mux.Get("/io", http.HandlerFunc(s.io))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) context(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}

func (s *Server) reply(w http.ResponseWriter, r *http.Request, err error, format string, args ...interface{}) {
	code := http.StatusOK
	switch {
	case err == nil:
	case errors.Is(err, flipdot.ErrBusy):
		code = http.StatusTooManyRequests
	case errors.Is(err, errParam), errors.Is(err, flipdot.ErrBounds), errors.Is(err, flipdot.ErrBufferFull):
		code = http.StatusBadRequest
	case errors.Is(err, flipdot.ErrNotSupported):
		code = http.StatusNotImplemented
	default:
		code = http.StatusInternalServerError
	}

	log := s.log.WithFields(logrus.Fields{
		"path":   r.URL.Path,
		"status": code,
	})
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	if err != nil {
		log.WithError(err).Warn("httpapi: request failed")
		fmt.Fprintln(w, err)
		return
	}
	log.Debug("httpapi: request")
	fmt.Fprintf(w, format+"\n", args...)
}

func intParam(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, fmt.Errorf("%w: %s is required", errParam, name)
	}
	return parseInt(name, v)
}

// intParamDefault returns def if name is absent or empty.
func intParamDefault(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return parseInt(name, v)
}

func parseInt(name, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %q is not a number", errParam, name, v)
	}
	return n, nil
}

// boolParam returns def if name is absent and true if it's present without value.
func boolParam(r *http.Request, name string, def bool) (bool, error) {
	q := r.URL.Query()
	if _, ok := q[name]; !ok {
		return def, nil
	}
	v := q.Get(name)
	if v == "" {
		return true, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %q is not a boolean", errParam, name, v)
	}
	return b, nil
}

func (s *Server) text(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if _, ok := q["text"]; !ok {
		s.reply(w, r, fmt.Errorf("%w: text is required", errParam), "")
		return
	}
	text := q.Get("text")

	x, err := intParamDefault(r, "X", 0)
	if err != nil {
		s.reply(w, r, err, "")
		return
	}
	y, err := intParamDefault(r, "Y", 0)
	if err != nil {
		s.reply(w, r, err, "")
		return
	}
	blank, err := boolParam(r, "clear", false)
	if err != nil {
		s.reply(w, r, err, "")
		return
	}

	ctx, cancel := s.context(r)
	defer cancel()

	if blank {
		if err = s.display.Clear(ctx); err != nil {
			s.reply(w, r, err, "")
			return
		}
	}

	if q.Get("font") != "" {
		font, err := intParam(r, "font")
		if err == nil && (font < 0 || font > 0xff) {
			err = fmt.Errorf("%w: font %d", errParam, font)
		}
		if err != nil {
			s.reply(w, r, err, "")
			return
		}
		fs, ok := s.display.(FontSender)
		if !ok {
			s.reply(w, r, fmt.Errorf("%w: font selection", flipdot.ErrNotSupported), "")
			return
		}
		err = fs.SendTextFont(ctx, text, x, y, byte(font))
		s.reply(w, r, err, "text %q at %d,%d font %#02x", text, x, y, font)
		return
	}

	err = s.display.SendText(ctx, text, x, y)
	s.reply(w, r, err, "text %q at %d,%d", text, x, y)
}

func (s *Server) raw(w http.ResponseWriter, r *http.Request) {
	rs, ok := s.display.(RawSender)
	if !ok {
		s.reply(w, r, fmt.Errorf("%w: raw commands", flipdot.ErrNotSupported), "")
		return
	}

	var values []int
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		s.reply(w, r, fmt.Errorf("%w: body: %v", errParam, err), "")
		return
	}
	data := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 0xff {
			s.reply(w, r, fmt.Errorf("%w: byte %d is %d", errParam, i, v), "")
			return
		}
		data[i] = byte(v)
	}

	ctx, cancel := s.context(r)
	defer cancel()
	s.reply(w, r, rs.SendRaw(ctx, data), "raw % x", data)
}

func (s *Server) fill(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()
	s.reply(w, r, s.display.FillWhite(ctx), "fill")
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()
	s.reply(w, r, s.display.Clear(ctx), "clear")
}

func (s *Server) backlight(w http.ResponseWriter, r *http.Request) {
	on, err := boolParam(r, "on", false)
	if err != nil {
		s.reply(w, r, err, "")
		return
	}
	s.reply(w, r, s.display.SetBacklight(on), "backlight %t", on)
}

func (s *Server) reverse(w http.ResponseWriter, r *http.Request) {
	inv, ok := s.display.(Inverter)
	if !ok {
		s.reply(w, r, fmt.Errorf("%w: inversion", flipdot.ErrNotSupported), "")
		return
	}
	ctx, cancel := s.context(r)
	defer cancel()
	inverted, err := inv.Invert(ctx)
	s.reply(w, r, err, "inverted %t", inverted)
}

func (s *Server) pixel(w http.ResponseWriter, r *http.Request) {
	pp, ok := s.display.(PixelPusher)
	if !ok {
		s.reply(w, r, fmt.Errorf("%w: pixel updates", flipdot.ErrNotSupported), "")
		return
	}

	x, err := intParam(r, "x")
	if err != nil {
		s.reply(w, r, err, "")
		return
	}
	y, err := intParam(r, "y")
	if err != nil {
		s.reply(w, r, err, "")
		return
	}
	on, err := boolParam(r, "on", true)
	if err != nil {
		s.reply(w, r, err, "")
		return
	}
	force, err := boolParam(r, "force", false)
	if err != nil {
		s.reply(w, r, err, "")
		return
	}

	ctx, cancel := s.context(r)
	defer cancel()
	s.reply(w, r, pp.PushPixel(ctx, x, y, on, force), "pixel %d,%d %t", x, y, on)
}

func (s *Server) io(w http.ResponseWriter, r *http.Request) {
	st := s.display.Status()
	s.reply(w, r, nil, "power=%s backlight=%t inverted=%t pending=%d sent=%d failed=%d",
		st.Power, st.Backlight, st.Inverted, st.Pending, st.Sent, st.Failed)
}
