package utils

import (
	"testing"

	"github.com/golang-jwt/jwt/v4"
)

func TestTokenRoundTrip(t *testing.T) {
	util := NewJWTUtil("test-secret")

	tokenString, err := util.GenerateToken("user1", "client", "Ivan")
	if err != nil {
		t.Fatal(err)
	}

	token, err := util.ValidateToken(tokenString)
	if err != nil {
		t.Fatal(err)
	}
	if !token.Valid {
		t.Fatal("token not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("claims are not MapClaims")
	}
	if claims["user_id"] != "user1" {
		t.Errorf("user_id = %v, want user1", claims["user_id"])
	}
	if claims["role"] != "client" {
		t.Errorf("role = %v, want client", claims["role"])
	}
	if claims["name"] != "Ivan" {
		t.Errorf("name = %v, want Ivan", claims["name"])
	}
	if jti, _ := claims["jti"].(string); jti == "" {
		t.Error("jti missing")
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	tokenString, err := NewJWTUtil("secret-a").GenerateToken("user1", "client", "Ivan")
	if err != nil {
		t.Fatal(err)
	}

	token, err := NewJWTUtil("secret-b").ValidateToken(tokenString)
	if err == nil && token.Valid {
		t.Error("token signed with another secret validated")
	}
}

func TestBlacklistKeyFormat(t *testing.T) {
	// Sign-out writes under this key and the middleware reads it back;
	// the two sides must agree on the format.
	if got := BlacklistKey("abc123"); got != "blacklist:abc123" {
		t.Errorf("BlacklistKey() = %q, want blacklist:abc123", got)
	}
}

func TestGenerateCodeLength(t *testing.T) {
	for _, n := range []int{6, 10, 16} {
		if code := GenerateCode(n); len(code) != n {
			t.Errorf("GenerateCode(%d) length = %d", n, len(code))
		}
	}
}
