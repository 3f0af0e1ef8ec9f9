package session

import (
	"context"
	"time"

	"indiestream/pkg/logging"

	"golang.org/x/oauth2"
)

// renewalTimeout bounds a renewal started by the timer.
const renewalTimeout = 30 * time.Second

// Renew runs the refresh-token grant now. Concurrent calls share one
// request. Failures are returned as *RenewalError and leave the session
// untouched.
func (m *Manager) Renew(ctx context.Context) error {
	_, err, _ := m.renewGroup.Do("renew", func() (interface{}, error) {
		return nil, m.renew(ctx)
	})
	return err
}

func (m *Manager) renew(ctx context.Context) error {
	m.mu.RLock()
	prev := m.session
	m.mu.RUnlock()

	if prev == nil {
		return &RenewalError{Err: ErrNotAuthenticated}
	}
	if prev.RefreshToken == "" {
		return &RenewalError{Err: ErrNoRefreshToken}
	}

	md, err := m.discover(ctx)
	if err != nil {
		return m.renewalFailed(prev, err)
	}

	src := m.oauth2Config(md).TokenSource(m.oauth2Context(ctx), &oauth2.Token{RefreshToken: prev.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return m.renewalFailed(prev, err)
	}

	sess, err := m.sessionFromToken(md, tok, prev, "")
	if err != nil {
		return m.renewalFailed(prev, err)
	}

	m.mu.Lock()
	if m.session != prev {
		// Logged out or replaced while the request was in flight.
		m.mu.Unlock()
		logging.Debug("Session", "Discarding renewal result for a replaced session")
		return nil
	}
	m.mu.Unlock()

	m.publish(sess)
	m.armRenewal()

	logging.Audit(logging.AuditEvent{
		Action:  "token_renewal",
		Outcome: "success",
		Subject: logging.TruncateID(sess.Subject()),
		Target:  md.Issuer,
	})
	return nil
}

func (m *Manager) renewalFailed(prev *Session, err error) error {
	rerr := &RenewalError{Err: err}
	logging.Warn("Session", "%v", rerr)
	logging.Audit(logging.AuditEvent{
		Action:  "token_renewal",
		Outcome: "failure",
		Subject: logging.TruncateID(prev.Subject()),
		Target:  prev.Issuer,
		Error:   err.Error(),
	})
	return rerr
}

// needsRenewal reports whether a restored session has lapsed but can still
// be renewed.
func (m *Manager) needsRenewal() bool {
	m.mu.RLock()
	sess := m.session
	m.mu.RUnlock()
	return sess != nil && sess.RefreshToken != "" && !sess.ValidAt(m.clock.Now())
}

// renewalDelay returns how long to wait before renewing sess.
func (m *Manager) renewalDelay(sess *Session) time.Duration {
	expiry := sess.AccessTokenExpiry
	if expiry.IsZero() {
		expiry = sess.IDTokenExpiry
	}
	if !sess.IDTokenExpiry.IsZero() && sess.IDTokenExpiry.Before(expiry) {
		expiry = sess.IDTokenExpiry
	}
	lifetime := expiry.Sub(sess.IssuedAt)
	at := sess.IssuedAt.Add(time.Duration(float64(lifetime) * m.cfg.RenewalFactor))

	delay := at.Sub(m.clock.Now())
	if delay < 0 {
		delay = 0
	}
	return delay
}

// armRenewal (re)schedules silent renewal for the current session.
func (m *Manager) armRenewal() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopRenewal != nil {
		m.stopRenewal()
		m.stopRenewal = nil
	}
	sess := m.session
	if sess == nil || sess.RefreshToken == "" {
		return
	}
	if sess.AccessTokenExpiry.IsZero() && sess.IDTokenExpiry.IsZero() {
		return
	}
	if !sess.ValidAt(m.clock.Now()) {
		return
	}

	delay := m.renewalDelay(sess)
	logging.Debug("Session", "Silent renewal scheduled in %s", delay.Round(time.Second))
	m.stopRenewal = m.clock.AfterFunc(delay, m.onRenewalTimer)
}

func (m *Manager) onRenewalTimer() {
	ctx, cancel := context.WithTimeout(context.Background(), renewalTimeout)
	defer cancel()
	// Failures are logged by renew; the session lapses on its own.
	_ = m.Renew(ctx)
}

// Close stops the renewal timer.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopRenewal != nil {
		m.stopRenewal()
		m.stopRenewal = nil
	}
}
