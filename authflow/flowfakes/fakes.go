// Package flowfakes provides hand-written fakes for the authflow capability
// interfaces, used by the orchestrator tests.
package flowfakes

import (
	"context"
	"net/url"
	"sync"

	"github.com/adminsuite/go-session-client/authflow"
	"github.com/adminsuite/go-session-client/session"
	"github.com/adminsuite/go-session-client/transport"
)

var _ authflow.Navigator = (*FakeNavigator)(nil)

// ReplaceCall records a single Replace invocation.
type ReplaceCall struct {
	Path  string
	Query url.Values
}

// FakeNavigator records navigation calls against a settable current path.
type FakeNavigator struct {
	lock         sync.Mutex
	currentPath  string
	currentQuery string
	Replaced     []ReplaceCall
	ForceAssigns []string
	ReplaceErr   error
}

func NewFakeNavigator(currentPath string) *FakeNavigator {
	return &FakeNavigator{currentPath: currentPath}
}

// SetLocation moves the fake to a new path, as a route guard would.
func (n *FakeNavigator) SetLocation(path, rawQuery string) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.currentPath = path
	n.currentQuery = rawQuery
}

func (n *FakeNavigator) Replace(path string, query url.Values) error {
	n.lock.Lock()
	defer n.lock.Unlock()
	if n.ReplaceErr != nil {
		return n.ReplaceErr
	}
	n.Replaced = append(n.Replaced, ReplaceCall{Path: path, Query: query})
	n.currentPath = path
	n.currentQuery = query.Encode()
	return nil
}

func (n *FakeNavigator) ForceAssign(path string) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.ForceAssigns = append(n.ForceAssigns, path)
	n.currentPath = path
	n.currentQuery = ""
}

func (n *FakeNavigator) CurrentPath() string {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.currentPath
}

func (n *FakeNavigator) CurrentFullPath() string {
	n.lock.Lock()
	defer n.lock.Unlock()
	if n.currentQuery == "" {
		return n.currentPath
	}
	return n.currentPath + "?" + n.currentQuery
}

// ReplaceCalls returns a snapshot of the recorded Replace invocations.
func (n *FakeNavigator) ReplaceCalls() []ReplaceCall {
	n.lock.Lock()
	defer n.lock.Unlock()
	return append([]ReplaceCall(nil), n.Replaced...)
}

// ForceAssignCalls returns a snapshot of the recorded hard navigations.
func (n *FakeNavigator) ForceAssignCalls() []string {
	n.lock.Lock()
	defer n.lock.Unlock()
	return append([]string(nil), n.ForceAssigns...)
}

var _ authflow.Notifier = (*FakeNotifier)(nil)

// Notification records a single notifier invocation.
type Notification struct {
	Level       string
	Message     string
	Description string
}

// FakeNotifier records every notification it receives.
type FakeNotifier struct {
	lock          sync.Mutex
	Notifications []Notification
}

func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{}
}

func (n *FakeNotifier) Success(message, description string) {
	n.record("success", message, description)
}

func (n *FakeNotifier) Warning(message, description string) {
	n.record("warning", message, description)
}

func (n *FakeNotifier) Error(message, description string) {
	n.record("error", message, description)
}

func (n *FakeNotifier) record(level, message, description string) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.Notifications = append(n.Notifications, Notification{Level: level, Message: message, Description: description})
}

// Calls returns a snapshot of the recorded notifications.
func (n *FakeNotifier) Calls() []Notification {
	n.lock.Lock()
	defer n.lock.Unlock()
	return append([]Notification(nil), n.Notifications...)
}

var _ authflow.TokenAPI = (*FakeTokenAPI)(nil)

// FakeTokenAPI stubs the transport surface with settable behaviors.
type FakeTokenAPI struct {
	TokenFunc       func(ctx context.Context, creds transport.Credentials) (*transport.TokenResponse, error)
	RevokeFunc      func(ctx context.Context) error
	AccessCodesFunc func(ctx context.Context) ([]string, error)

	lock        sync.Mutex
	TokenCalls  int
	RevokeCalls int
	CodesCalls  int
}

func NewFakeTokenAPI() *FakeTokenAPI {
	return &FakeTokenAPI{}
}

func (f *FakeTokenAPI) Token(ctx context.Context, creds transport.Credentials) (*transport.TokenResponse, error) {
	f.lock.Lock()
	f.TokenCalls++
	f.lock.Unlock()
	if f.TokenFunc == nil {
		return &transport.TokenResponse{}, nil
	}
	return f.TokenFunc(ctx, creds)
}

func (f *FakeTokenAPI) Revoke(ctx context.Context) error {
	f.lock.Lock()
	f.RevokeCalls++
	f.lock.Unlock()
	if f.RevokeFunc == nil {
		return nil
	}
	return f.RevokeFunc(ctx)
}

func (f *FakeTokenAPI) AccessCodes(ctx context.Context) ([]string, error) {
	f.lock.Lock()
	f.CodesCalls++
	f.lock.Unlock()
	if f.AccessCodesFunc == nil {
		return []string{}, nil
	}
	return f.AccessCodesFunc(ctx)
}

var _ authflow.ProfileResolver = (*FakeResolver)(nil)

// FakeResolver stubs profile resolution.
type FakeResolver struct {
	ResolveFunc func(ctx context.Context) (*session.UserProfile, error)
}

func NewFakeResolver() *FakeResolver {
	return &FakeResolver{}
}

func (f *FakeResolver) Resolve(ctx context.Context) (*session.UserProfile, error) {
	if f.ResolveFunc == nil {
		return nil, nil
	}
	return f.ResolveFunc(ctx)
}
