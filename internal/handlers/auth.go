package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"clinic-appointments-server/internal/apperrors"
	"clinic-appointments-server/internal/config"
	"clinic-appointments-server/internal/middleware"
	"clinic-appointments-server/internal/models"
	"clinic-appointments-server/internal/observability"
	"clinic-appointments-server/internal/utils"
)

const refreshCookie = "refresh_token"

var errTokenUnusable = errors.New("refresh token not found, expired, or revoked")

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg}
}

// RegisterRequest represents the request body for user registration.
type RegisterRequest struct {
	FirstName   string `json:"firstName" binding:"required"`
	LastName    string `json:"lastName" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	Role        string `json:"role" binding:"required,oneof=patient doctor admin"`
	PhoneNumber string `json:"phoneNumber" binding:"omitempty,max=17"`

	// Doctor profile fields, ignored for other roles.
	Specialty    string `json:"specialty" binding:"omitempty,max=50"`
	HospitalName string `json:"hospitalName"`
}

// Register creates a user; doctors also get a practitioner profile with a
// zero fee that starts out available.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	logger := observability.LoggerFromContext(c.Request.Context())

	role := models.ParseRole(req.Role)
	if role == models.RoleAdmin && !h.Cfg.AllowAdminSignup {
		utils.Forbidden(c, "Admin accounts cannot be self-registered")
		return
	}

	user := models.User{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Role:        role,
		PhoneNumber: req.PhoneNumber,
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.RespondError(c, apperrors.Internal("failed to hash password", err))
		return
	}

	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperrors.Conflict("user with this email already exists")
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if role != models.RoleDoctor {
			return nil
		}
		doctor := models.Doctor{
			ID:              user.ID,
			Specialty:       req.Specialty,
			HospitalName:    req.HospitalName,
			ConsultationFee: decimal.Zero,
			IsAvailable:     true,
		}
		return tx.Omit("User", "Schedules").Create(&doctor).Error
	})
	if err != nil {
		if _, ok := apperrors.As(err); !ok {
			err = apperrors.Internal("failed to create user", err)
		}
		utils.RespondError(c, err)
		return
	}

	logger.Info().Str("user_id", user.ID).Str("role", string(role)).Msg("user registered")
	utils.Created(c, "User registered successfully", user.Sanitize())
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	User         models.UserSanitized `json:"user"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	db := h.DB.WithContext(c.Request.Context())

	var user models.User
	if err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Unauthorized(c, "Invalid email or password")
		} else {
			utils.RespondError(c, apperrors.Unavailable("failed to load user", err))
		}
		return
	}

	if !user.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}

	accessToken, refreshToken, err := h.issueTokens(db, &user)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	h.setRefreshCookie(c, refreshToken)

	observability.LoggerFromContext(c.Request.Context()).Info().Str("user_id", user.ID).Msg("user logged in")
	utils.Success(c, "Login successful", LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Sanitize(),
	})
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshTokenResponse represents the response body for successful token refresh.
type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken exchanges a refresh token for a new pair. The presented
// token is revoked.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	presented, err := c.Cookie(refreshCookie)
	if err != nil || presented == "" {
		var req RefreshTokenRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		presented = req.RefreshToken
	}

	claims, err := utils.ValidateToken(presented, h.Cfg.JWTRefreshSecret)
	if err != nil {
		utils.Unauthorized(c, "Invalid refresh token structure or signature: "+err.Error())
		return
	}

	var (
		user                      models.User
		accessToken, refreshToken string
	)
	err = h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var stored models.RefreshToken
		if err := tx.Where("token = ? AND user_id = ?", presented, claims.UserID).First(&stored).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errTokenUnusable
			}
			return err
		}
		if !stored.Usable(time.Now()) {
			return errTokenUnusable
		}
		if err := tx.First(&user, "id = ?", claims.UserID).Error; err != nil {
			return err
		}
		if err := tx.Model(&stored).Update("is_revoked", true).Error; err != nil {
			return err
		}
		var issueErr error
		accessToken, refreshToken, issueErr = h.issueTokens(tx, &user)
		return issueErr
	})
	if errors.Is(err, errTokenUnusable) {
		utils.Unauthorized(c, err.Error())
		return
	}
	if err != nil {
		if _, ok := apperrors.As(err); !ok {
			err = apperrors.Unavailable("failed to rotate refresh token", err)
		}
		utils.RespondError(c, err)
		return
	}
	h.setRefreshCookie(c, refreshToken)

	utils.Success(c, "Access token refreshed successfully", RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// LogoutRequest represents the request body for user logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Logout revokes the given refresh token. Unknown tokens are not an error.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	res := h.DB.WithContext(c.Request.Context()).
		Model(&models.RefreshToken{}).
		Where("token = ? AND is_revoked = ?", req.RefreshToken, false).
		Updates(map[string]any{"is_revoked": true, "expires_at": time.Now()})
	if res.Error != nil {
		utils.RespondError(c, apperrors.Unavailable("failed to revoke refresh token", res.Error))
		return
	}

	c.SetCookie(refreshCookie, "", -1, "/", "", h.Cfg.Environment != "development", true)

	if res.RowsAffected == 0 {
		utils.Success(c, "Logout successful (token not found or already invalid).", nil)
		return
	}
	utils.Success(c, "Logout successful. Refresh token has been invalidated.", nil)
}

// GetProfile handles fetching the currently authenticated user's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var user models.User
	if err := h.DB.WithContext(c.Request.Context()).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "User profile not found")
		} else {
			utils.RespondError(c, apperrors.Unavailable("failed to load profile", err))
		}
		return
	}

	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}

// UpdateProfileRequest represents the request body for updating user profile.
type UpdateProfileRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber" binding:"omitempty,max=17"`
}

// UpdateProfile handles updating the currently authenticated user's profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req UpdateProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	db := h.DB.WithContext(c.Request.Context())

	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		utils.NotFound(c, "User not found")
		return
	}

	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.PhoneNumber != "" {
		user.PhoneNumber = req.PhoneNumber
	}

	if err := db.Save(&user).Error; err != nil {
		utils.RespondError(c, apperrors.Unavailable("failed to update profile", err))
		return
	}

	utils.Success(c, "Profile updated successfully", user.Sanitize())
}

// issueTokens signs a token pair and stores the refresh token.
func (h *AuthHandler) issueTokens(db *gorm.DB, user *models.User) (string, string, error) {
	accessToken, refreshToken, err := utils.GenerateTokens(user, h.Cfg)
	if err != nil {
		return "", "", apperrors.Internal("failed to generate tokens", err)
	}

	stored := models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: time.Now().Add(utils.RefreshTTL(h.Cfg)),
	}
	if err := db.Create(&stored).Error; err != nil {
		return "", "", apperrors.Unavailable("failed to store refresh token", err)
	}
	return accessToken, refreshToken, nil
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	c.SetCookie(
		refreshCookie,
		token,
		int(utils.RefreshTTL(h.Cfg).Seconds()),
		"/",
		"",
		h.Cfg.Environment != "development",
		true,
	)
}
