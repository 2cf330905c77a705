// Package auth handles status-UI accounts: bcrypt password storage, signed
// session cookies, and the encrypted hut-site credentials a user can park in
// the database instead of the environment.
package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/hutbook/internal/crypto"
	"github.com/example/hutbook/internal/db"
)

type Store struct {
	sc *securecookie.SecureCookie
	db *db.DB
}

type ctxKey string

const userIDKey ctxKey = "userID"

const cookieName = "hutbook_session"

const sessionTTL = 14 * 24 * time.Hour

func NewStore(d *db.DB, hashKey, blockKey []byte) *Store {
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(sessionTTL.Seconds()))
	return &Store{sc: sc, db: d}
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

func (s *Store) CreateUser(ctx context.Context, username, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return s.db.Exec(ctx, `INSERT INTO users(username, password_bcrypt) VALUES ($1,$2)`, username, hash)
}

func (s *Store) Authenticate(ctx context.Context, username, password string) (int64, error) {
	var id int64
	var hash string
	err := s.db.QueryRow(ctx, `SELECT id, password_bcrypt FROM users WHERE username=$1`, username).Scan(&id, &hash)
	if err != nil {
		return 0, db.WrapNotFound(err)
	}
	if !CheckPassword(hash, password) {
		return 0, errors.New("invalid credentials")
	}
	return id, nil
}

// HutCredentials are the hut-site login a user has stored for later runs.
type HutCredentials struct {
	Provider string
	Username string
	Password string
}

// SaveHutCredentials seals the login with the AEAD before it touches the
// database; the plaintext never leaves the process.
func (s *Store) SaveHutCredentials(ctx context.Context, enc *crypto.AEAD, userID int64, c HutCredentials) error {
	cu, err := enc.EncryptToString(c.Username)
	if err != nil {
		return err
	}
	cp, err := enc.EncryptToString(c.Password)
	if err != nil {
		return err
	}
	return s.db.Exec(ctx, `
INSERT INTO hut_credentials(user_id, provider, username_encrypted, password_encrypted, updated_at)
VALUES ($1,$2,$3,$4,now())
ON CONFLICT (user_id) DO UPDATE
SET provider=$2, username_encrypted=$3, password_encrypted=$4, updated_at=now()`,
		userID, c.Provider, cu, cp)
}

func (s *Store) LoadHutCredentials(ctx context.Context, enc *crypto.AEAD, userID int64) (HutCredentials, error) {
	var c HutCredentials
	var cu, cp string
	err := s.db.QueryRow(ctx, `
SELECT provider, username_encrypted, password_encrypted FROM hut_credentials WHERE user_id=$1`,
		userID).Scan(&c.Provider, &cu, &cp)
	if err != nil {
		return HutCredentials{}, db.WrapNotFound(err)
	}
	if c.Username, err = enc.DecryptString(cu); err != nil {
		return HutCredentials{}, err
	}
	if c.Password, err = enc.DecryptString(cp); err != nil {
		return HutCredentials{}, err
	}
	return c, nil
}

type Session struct {
	UserID int64
}

func (s *Store) SetSession(w http.ResponseWriter, r *http.Request, userID int64) error {
	encoded, err := s.sc.Encode(cookieName, map[string]any{"uid": userID, "v": 1})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		MaxAge:   int(sessionTTL.Seconds()),
	})
	return nil
}

func (s *Store) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func (s *Store) GetSession(r *http.Request) (Session, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return Session{}, false
	}
	val := map[string]any{}
	if err := s.sc.Decode(cookieName, c.Value, &val); err != nil {
		return Session{}, false
	}
	switch uid := val["uid"].(type) {
	case int64:
		if uid > 0 {
			return Session{UserID: uid}, true
		}
	case float64:
		if uid > 0 {
			return Session{UserID: int64(uid)}, true
		}
	}
	return Session{}, false
}

func (s *Store) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.GetSession(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, sess.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	uid, ok := ctx.Value(userIDKey).(int64)
	return uid, ok
}
