// Package memstore provides mutex-guarded in-memory implementations of the
// session store interfaces. Hosts with other persistence needs (browser
// storage bridges, keychains) supply their own implementations.
package memstore

import (
	"sync"

	"github.com/adminsuite/go-session-client/session"
)

var _ session.AccessStore = (*AccessStore)(nil)

// AccessStore is an in-memory session.AccessStore.
type AccessStore struct {
	lock         sync.RWMutex
	token        session.TokenSet
	accessCodes  []string
	loginExpired bool
}

func NewAccessStore() *AccessStore {
	return &AccessStore{}
}

func (as *AccessStore) SetToken(token session.TokenSet) {
	as.lock.Lock()
	defer as.lock.Unlock()
	as.token = token
}

func (as *AccessStore) Token() session.TokenSet {
	as.lock.RLock()
	defer as.lock.RUnlock()
	return as.token
}

func (as *AccessStore) SetAccessCodes(codes []string) {
	as.lock.Lock()
	defer as.lock.Unlock()
	as.accessCodes = append([]string(nil), codes...)
}

func (as *AccessStore) AccessCodes() []string {
	as.lock.RLock()
	defer as.lock.RUnlock()
	return append([]string(nil), as.accessCodes...)
}

func (as *AccessStore) SetLoginExpired(expired bool) {
	as.lock.Lock()
	defer as.lock.Unlock()
	as.loginExpired = expired
}

func (as *AccessStore) LoginExpired() bool {
	as.lock.RLock()
	defer as.lock.RUnlock()
	return as.loginExpired
}

func (as *AccessStore) Reset() {
	as.lock.Lock()
	defer as.lock.Unlock()
	as.token = session.TokenSet{}
	as.accessCodes = nil
	as.loginExpired = false
}

var _ session.UserStore = (*UserStore)(nil)

// UserStore is an in-memory session.UserStore.
type UserStore struct {
	lock     sync.RWMutex
	userInfo *session.UserProfile
}

func NewUserStore() *UserStore {
	return &UserStore{}
}

func (us *UserStore) SetUserInfo(profile *session.UserProfile) {
	us.lock.Lock()
	defer us.lock.Unlock()
	us.userInfo = profile
}

func (us *UserStore) UserInfo() *session.UserProfile {
	us.lock.RLock()
	defer us.lock.RUnlock()
	return us.userInfo
}

func (us *UserStore) Reset() {
	us.lock.Lock()
	defer us.lock.Unlock()
	us.userInfo = nil
}
