package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("EC2API_TEST_STRING", "value")

	assert.Equal(t, "value", GetEnv("EC2API_TEST_STRING", "fallback"))
	assert.Equal(t, "fallback", GetEnv("EC2API_TEST_UNSET", "fallback"))
}

func TestTypedGetters(t *testing.T) {
	t.Setenv("EC2API_TEST_BOOL", "false")
	t.Setenv("EC2API_TEST_INT", " 7 ")
	t.Setenv("EC2API_TEST_DURATION", "250ms")
	t.Setenv("EC2API_TEST_GARBAGE", "not-a-value")

	assert.False(t, GetEnvBool("EC2API_TEST_BOOL", true))
	assert.True(t, GetEnvBool("EC2API_TEST_GARBAGE", true))
	assert.True(t, GetEnvBool("EC2API_TEST_UNSET", true))

	assert.Equal(t, 7, GetEnvInt("EC2API_TEST_INT", 1))
	assert.Equal(t, 1, GetEnvInt("EC2API_TEST_GARBAGE", 1))

	assert.Equal(t, 250*time.Millisecond, GetEnvDuration("EC2API_TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, GetEnvDuration("EC2API_TEST_GARBAGE", time.Second))
}
