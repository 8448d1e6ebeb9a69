package unlock

import (
	"context"
	"encoding/xml"
	"net/url"
	"runtime"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// User-facing messages for the two locally generated failure categories.
// Every transport-level problem maps onto the single connection-failed
// message: from the client's side a refused connection, a 500 and an
// unparseable body are equally unrecoverable.
const (
	connectionFailedMessage = "Couldn't connect to the authentication server. Please check your internet connection and try again."
	keyRejectedMessage      = "The server's response could not be verified for this product on this machine."
)

// UnlockResult is the outcome of one webserver unlock attempt.
//
// Exactly one of "Succeeded with empty ErrorMessage" or "not Succeeded
// with a non-empty ErrorMessage" holds. InformativeMessage and
// URLToLaunch are independent of success: the server may push a notice
// ("a new version is available") or a page to open on any outcome.
type UnlockResult struct {
	// Succeeded is true if the product is now unlocked.
	Succeeded bool

	// ErrorMessage is the server-supplied or locally generated failure
	// message. Empty on success.
	ErrorMessage string

	// InformativeMessage is a status message the user should be shown,
	// not necessarily an error.
	InformativeMessage string

	// URLToLaunch is a web page the server wants the user directed to.
	URLToLaunch string
}

// serverReply is the vendor reply document:
//
//	<UNLOCK status="succeeded">
//	  <KEY>DUK1....</KEY>
//	  <MESSAGE>optional notice</MESSAGE>
//	  <URL>optional page to open</URL>
//	  <ERROR>optional failure reason</ERROR>
//	</UNLOCK>
type serverReply struct {
	XMLName xml.Name `xml:"UNLOCK"`
	Status  string   `xml:"status,attr"`
	Key     string   `xml:"KEY"`
	Message string   `xml:"MESSAGE"`
	URL     string   `xml:"URL"`
	Error   string   `xml:"ERROR"`
}

func (r *serverReply) succeeded() bool { return r.Status == "succeeded" }

func parseServerReply(body []byte) (*serverReply, error) {
	var r serverReply
	if err := xml.Unmarshal(body, &r); err != nil {
		return nil, ErrReplyInvalid
	}
	return &r, nil
}

// AttemptWebserverUnlock contacts the authentication server and tries to
// register this machine with the given user credentials. One call, one
// definitive outcome: there is no internal retry, and a failed attempt
// leaves the unlock state untouched.
//
// The blocking round trip runs under ctx through the injected transport;
// call it off any interaction-critical goroutine.
func (s *Status) AttemptWebserverUnlock(ctx context.Context, email, password string) UnlockResult {
	logger := s.log.With().Str("attempt_id", uuid.NewString()).Logger()

	params := url.Values{}
	params.Set("email", email)
	params.Set("pw", password)
	params.Set("product", s.cfg.ProductID())
	params.Set("os", runtime.GOOS)
	if ids := s.cfg.MachineIDs(); len(ids) > 0 {
		params.Set("mach", ids[0])
	}

	code, body, err := s.transport.Send(ctx, s.cfg.AuthenticationEndpoint(), params)
	if err != nil || code < 200 || code >= 300 {
		logger.Warn().Err(err).Int("status", code).Msg("unlock request did not complete")
		return UnlockResult{ErrorMessage: connectionFailedMessage}
	}

	reply, err := parseServerReply(body)
	if err != nil {
		logger.Warn().Err(err).Msg("unlock reply unparseable")
		return UnlockResult{ErrorMessage: connectionFailedMessage}
	}

	return s.applyServerReply(logger, reply, email)
}

// applyServerReply verifies and applies a parsed reply. The embedded key
// blob goes through the exact same validation pipeline as a pasted key
// file, so both unlock paths stand or fall with the same private key.
func (s *Status) applyServerReply(logger zerolog.Logger, reply *serverReply, email string) UnlockResult {
	// Message and URL travel on every outcome.
	res := UnlockResult{
		InformativeMessage: reply.Message,
		URLToLaunch:        reply.URL,
	}

	if !reply.succeeded() {
		res.ErrorMessage = reply.Error
		if res.ErrorMessage == "" {
			res.ErrorMessage = keyRejectedMessage
		}
		logger.Info().Str("server_error", reply.Error).Msg("server declined unlock")
		return res
	}

	payload, err := validateKeyFile(s.cfg, reply.Key)
	if err != nil {
		logger.Warn().Err(err).Msg("server key blob rejected")
		res.ErrorMessage = keyRejectedMessage
		return res
	}

	s.state.SetUnlocked(true)
	switch {
	case payload.Email != "":
		s.state.SetUserEmail(payload.Email)
	case email != "":
		s.state.SetUserEmail(email)
	}
	res.Succeeded = true
	logger.Info().Msg("product unlocked via webserver")
	return res
}
