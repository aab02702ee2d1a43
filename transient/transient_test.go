// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	assert.Equal(t, Not, Categorize(nil))
	assert.Equal(t, Not, Categorize(errors.New("foo")))
	assert.Equal(t, Not, Categorize(wrapper{}))
	assert.Equal(t, Not, Categorize(wrapper{errors.New("bar")}))
	assert.Equal(t, Timeout, Categorize(syscall.ETIMEDOUT))
	assert.Equal(t, Timeout, Categorize(timeout{}))
	assert.Equal(t, Timeout, Categorize(&url.Error{Err: syscall.ETIMEDOUT}))
	assert.Equal(t, Timeout, Categorize(&url.Error{Err: timeout{}}))
	assert.Equal(t, Timeout, Categorize(wrapper{&url.Error{Err: syscall.ETIMEDOUT}}))
	assert.Equal(t, Timeout, Categorize(wrapper{wrapper{timeout{}}}))
	assert.Equal(t, Timeout, Categorize(timeoutWrapper{true, syscall.ECONNRESET}))
	assert.Equal(t, Timeout, Categorize(wrapper{timeoutWrapper{true, syscall.ECONNREFUSED}}))
	assert.Equal(t, ConnReset, Categorize(syscall.ECONNRESET))
	assert.Equal(t, ConnReset, Categorize(wrapper{syscall.ECONNRESET}))
	assert.Equal(t, ConnReset, Categorize(timeoutWrapper{false, syscall.ECONNRESET}))
	assert.Equal(t, ConnRefused, Categorize(syscall.ECONNREFUSED))
	assert.Equal(t, ConnRefused, Categorize(wrapper{syscall.ECONNREFUSED}))
	assert.Equal(t, ConnRefused, Categorize(&url.Error{Err: wrapper{timeoutWrapper{false, syscall.ECONNREFUSED}}}))
}

func TestCode(t *testing.T) {
	assert.Equal(t, "", Code(nil))
	assert.Equal(t, "", Code(errors.New("foo")))
	assert.Equal(t, "", Code(wrapper{errors.New("bar")}))
	assert.Equal(t, "", Code(syscall.EINVAL))
	assert.Equal(t, "ETIMEDOUT", Code(syscall.ETIMEDOUT))
	assert.Equal(t, "ETIMEDOUT", Code(timeout{}))
	assert.Equal(t, "ETIMEDOUT", Code(&url.Error{Err: timeout{}}))
	assert.Equal(t, "ETIMEDOUT", Code(timeoutWrapper{true, syscall.ECONNRESET}))
	assert.Equal(t, "ECONNRESET", Code(syscall.ECONNRESET))
	assert.Equal(t, "ECONNRESET", Code(&url.Error{Err: wrapper{syscall.ECONNRESET}}))
	assert.Equal(t, "ECONNREFUSED", Code(wrapper{syscall.ECONNREFUSED}))
	assert.Equal(t, "EPIPE", Code(syscall.EPIPE))
	assert.Equal(t, "ENETUNREACH", Code(syscall.ENETUNREACH))
	assert.Equal(t, "EHOSTUNREACH", Code(syscall.EHOSTUNREACH))
	assert.Equal(t, "EADDRINUSE", Code(syscall.EADDRINUSE))
	assert.Equal(t, "ENOTFOUND", Code(&net.DNSError{Err: "no such host", IsNotFound: true}))
	assert.Equal(t, "ENOTFOUND", Code(&url.Error{Err: &net.DNSError{Err: "no such host", IsNotFound: true}}))
	assert.Equal(t, "EAI_AGAIN", Code(&net.DNSError{Err: "server misbehaving", IsTemporary: true}))
}

type timeout struct{}

func (err timeout) Error() string {
	return "timeout"
}

func (_ timeout) Timeout() bool {
	return true
}

type wrapper struct {
	wrappedError error
}

func (err wrapper) Error() string {
	return fmt.Sprintf("wrapper - wraps %v", err.wrappedError)
}

func (err wrapper) Unwrap() error {
	return err.wrappedError
}

type timeoutWrapper struct {
	timeout      bool
	wrappedError error
}

func (err timeoutWrapper) Error() string {
	return fmt.Sprintf("timeoutWrapper - timeout %t, wraps %v", err.timeout, err.wrappedError)
}

func (err timeoutWrapper) Timeout() bool {
	return err.timeout
}

func (err timeoutWrapper) Unwrap() error {
	return err.wrappedError
}
