package server

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/mail"
	"strconv"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"safacycle/internal/analytics"
	"safacycle/internal/database"
	"safacycle/internal/model"
)

func (s Server) userRegister() http.HandlerFunc {
	type request struct {
		Username    string `json:"username"`
		Email       string `json:"email"`
		Password    string `json:"password"`
		PhoneNumber string `json:"phone_number"`
		DeviceID    string `json:"device_id"`
		FCMToken    string `json:"fcm_token"`
	}
	type response struct {
		User       model.User `json:"user"`
		LoginToken string     `json:"login_token"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("userRegister: Error decoding JSON, err: %v", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if req.Username == "" {
			http.Error(w, "Username is required", http.StatusBadRequest)
			return
		}
		if _, err := mail.ParseAddress(req.Email); err != nil {
			s.Logger.Debugf("userRegister: Invalid email, err: %v", err)
			http.Error(w, "Invalid email", http.StatusBadRequest)
			return
		}
		if req.DeviceID == "" {
			http.Error(w, "device_id is required", http.StatusBadRequest)
			return
		}
		password, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			s.Logger.Errorf("userRegister: Error generating bcrypt from password, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		u, err := s.DB.UserInsert(r.Context(), model.User{
			Username:    req.Username,
			Email:       req.Email,
			Password:    password,
			PhoneNumber: req.PhoneNumber,
		})
		if err != nil {
			if database.IsUniqueViolation(err) {
				s.Logger.Debugf("userRegister: Duplicate username or email, err: %v", err)
				http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
				return
			}
			s.Logger.Errorf("userRegister: Error inserting User, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		lt, exp, tokenHash, err := s.createLoginTokenAndHash(u.ID, req.DeviceID)
		if err != nil {
			s.Logger.Errorf("userRegister: Error creating login token for User, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if err = s.DB.DeviceUpsert(r.Context(), model.Device{
			UserID:          u.ID,
			DeviceID:        req.DeviceID,
			FCMToken:        req.FCMToken,
			TokenHash:       tokenHash,
			TokenExpiration: exp,
		}); err != nil {
			s.Logger.Errorf("userRegister: Error saving Device for User, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		// Advisory mirror; registration has already succeeded.
		s.mirrorUser(r.Context(), u)

		s.writeJsonResponse(w, response{
			User:       u,
			LoginToken: lt,
		}, http.StatusCreated)
	}
}

func (s Server) userLogin() http.HandlerFunc {
	type request struct {
		Username string `json:"username"`
		Password string `json:"password"`
		DeviceID string `json:"device_id"`
		FCMToken string `json:"fcm_token"`
	}
	type response struct {
		User       model.User `json:"user"`
		LoginToken string     `json:"login_token"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("userLogin: Error decoding JSON, err: %v", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if req.DeviceID == "" {
			http.Error(w, "device_id is required", http.StatusBadRequest)
			return
		}

		u, err := s.DB.UserFindByUsername(r.Context(), req.Username)
		if err != nil {
			s.Logger.Debugf("userLogin: Error finding User, err: %v", err)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		if err = bcrypt.CompareHashAndPassword(u.Password, []byte(req.Password)); err != nil {
			s.Logger.Debugf("userLogin: Error comparing hash and password for User with username: %s, err: %v", u.Username, err)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		lt, exp, tokenHash, err := s.createLoginTokenAndHash(u.ID, req.DeviceID)
		if err != nil {
			s.Logger.Errorf("userLogin: Error creating login token for User, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if err = s.DB.DeviceUpsert(r.Context(), model.Device{
			UserID:          u.ID,
			DeviceID:        req.DeviceID,
			FCMToken:        req.FCMToken,
			TokenHash:       tokenHash,
			TokenExpiration: exp,
		}); err != nil {
			s.Logger.Errorf("userLogin: Error saving Device for User, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		s.mirrorUser(r.Context(), u)

		s.writeJsonResponse(w, response{
			User:       u,
			LoginToken: lt,
		}, http.StatusOK)
	}
}

func (s Server) userLogout() http.HandlerFunc {
	type response struct {
		Success bool `json:"success"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		uc, err := getUserContext(r.Context())
		if err != nil {
			s.Logger.Errorf("userLogout: Error getting userContext, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		if err = s.DB.DeviceTokenClear(r.Context(), uc.user.ID, uc.deviceID); err != nil {
			s.Logger.Errorf("userLogout: Error clearing Device token, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, response{Success: true}, http.StatusOK)
	}
}

func (s Server) userInfo() http.HandlerFunc {
	type request struct {
		FCMToken string `json:"fcm_token"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		uc, err := getUserContext(r.Context())
		if err != nil {
			s.Logger.Errorf("userInfo: Error getting userContext, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		req := request{}
		if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("userInfo: Error decoding JSON, err: %v", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		if req.FCMToken != "" {
			if err = s.DB.DeviceFCMTokenUpdate(r.Context(), uc.user.ID, uc.deviceID, req.FCMToken); err != nil {
				s.Logger.Errorf("userInfo: Error updating Device FCM token, err: %v", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
		}
		s.writeJsonResponse(w, uc.user, http.StatusOK)
	}
}

// mirrorUser upserts the user's analytics document. Best effort: a failed
// mirror is already logged by the gateway and never fails the caller.
func (s Server) mirrorUser(ctx context.Context, u model.User) {
	if id := s.Gateway.UpsertByKey(ctx, analytics.CollectionUsers, "user_id", analytics.UserKey(u), analytics.UserDocument(u)); id == "" {
		s.Logger.Warnf("mirrorUser: Failed to mirror UserID: %d", u.ID)
	}
}

func (s Server) createLoginTokenAndHash(userID int64, deviceID string) (string, time.Time, []byte, error) {
	exp := time.Now().AddDate(0, 0, 90)
	salt := make([]byte, 128)
	if _, err := rand.Read(salt); err != nil {
		return "", exp, nil, errors.Wrapf(err, "error generating salt for login token for UserID: %d, DeviceID: %s", userID, deviceID)
	}
	t, err := jwt.NewBuilder().
		Subject(strconv.FormatInt(userID, 10)).
		Issuer("safacycle-app").
		Expiration(exp).
		Claim("device", deviceID).
		Claim("s", base64.StdEncoding.EncodeToString(salt)).
		Build()
	if err != nil {
		return "", exp, nil, errors.Wrapf(err, "error creating login token for UserID: %d, DeviceID: %s", userID, deviceID)
	}
	lt, err := jwt.Sign(t, jwt.WithKey(jwa.HS256, s.AuthSecretKey))
	if err != nil {
		return "", exp, nil, errors.Wrapf(err, "error signing login token for UserID: %d, DeviceID: %s", userID, deviceID)
	}
	tokenHash := sha256.Sum256(lt)
	bcryptTokenHash, err := bcrypt.GenerateFromPassword(tokenHash[:], bcrypt.DefaultCost-3)
	if err != nil {
		return "", exp, nil, errors.Wrapf(err, "error generating bcrypt from login token hash for UserID: %d, DeviceID: %s", userID, deviceID)
	}
	return string(lt), t.Expiration(), bcryptTokenHash, nil
}
