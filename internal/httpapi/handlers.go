package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/infodancer/chatd/internal/auth"
	"github.com/infodancer/chatd/internal/store"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleSignup registers a new user. Duplicate usernames get 401 with the
// historical "User Already Exist" body; clients depend on both.
func (s *Server) handleSignup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.String(http.StatusBadRequest, "Invalid JSON")
		return
	}

	hash, err := auth.HashPassword(req.Password, s.pepper)
	if err != nil {
		s.logger.Error("hashing password failed", slog.String("error", err.Error()))
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if err := s.users.CreateUser(c.Request.Context(), req.Username, hash); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			s.collector.AuthAttempt("signup", false)
			c.String(http.StatusUnauthorized, "User Already Exist")
			return
		}
		s.logger.Error("creating user failed", slog.String("error", err.Error()))
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	s.collector.AuthAttempt("signup", true)
	c.String(http.StatusCreated, "User Created Successfully")
}

// handleLogin verifies credentials and mints a token. Unknown usernames
// get 404, bad passwords 401, both with an identical body so the two cases
// are indistinguishable by message.
func (s *Server) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "Invalid JSON")
		return
	}

	hash, err := s.users.PasswordHash(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.collector.AuthAttempt("login", false)
			c.String(http.StatusNotFound, "Invalid credentials")
			return
		}
		s.logger.Error("fetching credentials failed", slog.String("error", err.Error()))
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	ok, err := auth.VerifyPassword(req.Password, s.pepper, hash)
	if err != nil {
		s.logger.Error("verifying password failed", slog.String("error", err.Error()))
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if !ok {
		s.collector.AuthAttempt("login", false)
		c.String(http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.tokens.Mint(req.Username)
	if err != nil {
		s.logger.Error("minting token failed", slog.String("error", err.Error()))
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	s.collector.AuthAttempt("login", true)
	c.JSON(http.StatusOK, gin.H{
		"message":  "Login successful",
		"token":    token,
		"username": req.Username,
	})
}

// handleLogout is stateless: tokens are discarded client-side.
func (s *Server) handleLogout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

// handleVerifyToken validates a Bearer token from the Authorization header.
func (s *Server) handleVerifyToken(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.String(http.StatusUnauthorized, "Missing Authorization header")
		return
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(header, bearerPrefix) {
		c.String(http.StatusUnauthorized, "Invalid Authorization header format")
		return
	}

	token := header[len(bearerPrefix):]
	if token == "" {
		c.String(http.StatusUnauthorized, "Missing token")
		return
	}

	username, err := s.tokens.Verify(token)
	if err != nil {
		s.collector.AuthAttempt("verify", false)
		if errors.Is(err, auth.ErrTokenExpired) {
			c.String(http.StatusUnauthorized, "Token has expired")
			return
		}
		c.String(http.StatusUnauthorized, "Token verification failed")
		return
	}

	s.collector.AuthAttempt("verify", true)
	c.JSON(http.StatusOK, gin.H{
		"valid":    true,
		"username": username,
		"message":  "Token is valid",
	})
}

// handleSearch returns up to ten usernames matching the query.
func (s *Server) handleSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.String(http.StatusBadRequest, "Missing search query parameter 'q'")
		return
	}
	if len(query) < 2 {
		c.String(http.StatusBadRequest, "Search query must be at least 2 characters")
		return
	}

	results, err := s.users.SearchUsers(c.Request.Context(), query)
	if err != nil {
		s.logger.Error("searching users failed", slog.String("error", err.Error()))
		c.String(http.StatusInternalServerError, "Search failed")
		return
	}

	if results == nil {
		results = []string{}
	}
	c.JSON(http.StatusOK, results)
}

type storeKeyRequest struct {
	Username  string `json:"username"`
	PublicKey string `json:"public_key"`
}

// handleStorePublicKey saves a user's public key. Unknown users report the
// same 500 as storage failures; the endpoint never confirms whether a
// username exists.
func (s *Server) handleStorePublicKey(c *gin.Context) {
	var req storeKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.PublicKey == "" {
		c.String(http.StatusBadRequest, "Missing username or public_key")
		return
	}

	if err := s.users.StorePublicKey(c.Request.Context(), req.Username, req.PublicKey); err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			s.logger.Error("storing public key failed", slog.String("error", err.Error()))
		}
		c.String(http.StatusInternalServerError, "Failed to store public key")
		return
	}

	c.String(http.StatusOK, "Public key stored successfully")
}

type getKeyRequest struct {
	Recipient string `json:"recipient"`
}

// handleGetPublicKey returns the recipient's raw public key string.
func (s *Server) handleGetPublicKey(c *gin.Context) {
	var req getKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Recipient == "" {
		c.String(http.StatusBadRequest, "Missing recipient")
		return
	}

	key, err := s.users.PublicKey(c.Request.Context(), req.Recipient)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			c.String(http.StatusNotFound, "Public key not found for user")
			return
		}
		s.logger.Error("fetching public key failed", slog.String("error", err.Error()))
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	c.String(http.StatusOK, key)
}
