package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"proofpass/internal/platform/httpserver"
)

func TestClaimLockTTL(t *testing.T) {
	for _, issuerTimeout := range []time.Duration{0, 5 * time.Second, 40 * time.Second, 2 * time.Minute} {
		ttl := claimLockTTL(issuerTimeout)
		assert.Greater(t, ttl, httpserver.WriteTimeout(issuerTimeout), "issuer timeout %s", issuerTimeout)
		if issuerTimeout > 0 {
			assert.Greater(t, ttl, 3*issuerTimeout, "issuer timeout %s", issuerTimeout)
		}
	}
	assert.Equal(t, 3*time.Minute+40*time.Second, claimLockTTL(time.Minute))
}
