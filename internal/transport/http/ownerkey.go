package http

import (
	"net/http"
	"strings"

	"github.com/BoulevardTcg/shop-api/internal/domain"
	"github.com/google/uuid"
)

const cartIDHeader = "X-Cart-Id"

// Authenticator extracts the authenticated user id from a request, empty
// when the caller is anonymous. Auth internals live upstream; this service
// only consumes the identity.
type Authenticator interface {
	UserID(r *http.Request) string
}

// HeaderAuthenticator trusts an identity header set by the upstream proxy.
type HeaderAuthenticator struct {
	Header string
}

func (a HeaderAuthenticator) UserID(r *http.Request) string {
	header := a.Header
	if header == "" {
		header = "X-User-Id"
	}
	return strings.TrimSpace(r.Header.Get(header))
}

// ownerIdentity is the resolved caller identity for one request.
type ownerIdentity struct {
	OwnerKey string
	CartID   string
	UserID   string
}

// resolveOwner binds the request to a stable owner key. Authenticated users
// get user:<id>; everyone else gets cart:<id> from the X-Cart-Id header. A
// missing or malformed cart id is replaced and echoed back so the client can
// persist it.
func resolveOwner(w http.ResponseWriter, r *http.Request, auth Authenticator) ownerIdentity {
	id := ownerIdentity{CartID: ensureCartID(w, r)}
	if auth != nil {
		id.UserID = auth.UserID(r)
	}
	if id.UserID != "" {
		id.OwnerKey = domain.UserOwnerKey(id.UserID)
	} else {
		id.OwnerKey = domain.CartOwnerKey(id.CartID)
	}
	return id
}

// resolveCheckoutOwner prefers the cart identity: holds are placed before
// login is known to be stable, so the checkout chain pins to the cart id
// whenever one exists and only falls back to the user key.
func resolveCheckoutOwner(w http.ResponseWriter, r *http.Request, auth Authenticator) ownerIdentity {
	id := ownerIdentity{CartID: ensureCartID(w, r)}
	if auth != nil {
		id.UserID = auth.UserID(r)
	}
	if id.CartID != "" {
		id.OwnerKey = domain.CartOwnerKey(id.CartID)
	} else {
		id.OwnerKey = domain.UserOwnerKey(id.UserID)
	}
	return id
}

func ensureCartID(w http.ResponseWriter, r *http.Request) string {
	cartID := strings.TrimSpace(r.Header.Get(cartIDHeader))
	if !validCartID(cartID) {
		cartID = newCartID()
	}
	w.Header().Set(cartIDHeader, cartID)
	return cartID
}

// Cart ids are 32 lowercase hex characters, a hyphenless uuid.
func validCartID(id string) bool {
	if len(id) != 32 {
		return false
	}
	for _, c := range id {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func newCartID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
