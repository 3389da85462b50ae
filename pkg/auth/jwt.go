package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/carebook/scheduling-api/internal/model"
)

// Claims carries the acting account's identity. PatientID/DoctorID are set
// only for accounts of that type.
type Claims struct {
	AccountID   uuid.UUID         `json:"account_id"`
	AccountType model.AccountType `json:"account_type"`
	Email       string            `json:"email"`
	PatientID   *uuid.UUID        `json:"patient_id,omitempty"`
	DoctorID    *uuid.UUID        `json:"doctor_id,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the domain actor.
func (c *Claims) Actor() model.Actor {
	return model.Actor{
		AccountID: c.AccountID,
		Type:      c.AccountType,
		Email:     c.Email,
		PatientID: c.PatientID,
		DoctorID:  c.DoctorID,
	}
}

type JWTService struct {
	secret      []byte
	expiryHours int
}

func NewJWTService(secret string, expiryHours int) *JWTService {
	return &JWTService{
		secret:      []byte(secret),
		expiryHours: expiryHours,
	}
}

func (s *JWTService) GenerateToken(actor model.Actor) (string, error) {
	claims := &Claims{
		AccountID:   actor.AccountID,
		AccountType: actor.Type,
		Email:       actor.Email,
		PatientID:   actor.PatientID,
		DoctorID:    actor.DoctorID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(s.expiryHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   actor.AccountID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
