package controllers

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/kusinahub/kusina-api/initializers"
	"github.com/kusinahub/kusina-api/models"
)

const (
	// Default cost for bcrypt password hashing
	bcryptCost = 10

	// Standard response messages
	msgInvalidInput          = "invalid input"
	msgStaffAlreadyExists    = "staff account already exists"
	msgFailedToHashPassword  = "failed to hash password"
	msgInvalidCredentials    = "invalid username or password"
	msgFailedToGenerateToken = "failed to generate token"
	msgInternalServerError   = "Internal server error"
	msgInvalidSignupCode     = "invalid signup code"
	msgStaffCreated          = "Staff account created successfully."
)

func sendJSONResponse(ctx *gin.Context, status int, data gin.H) {
	ctx.JSON(status, data)
}

func sendErrorResponse(ctx *gin.Context, status int, message string) {
	sendJSONResponse(ctx, status, gin.H{"message": message})
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func comparePasswords(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func generateJWT(staff models.Staff) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"staff_id": staff.ID,
		"username": staff.Username,
		"role":     staff.Role,
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(time.Hour * 24 * 30).Unix(),
	})

	jwtSecret := os.Getenv("JWT_SECRET")
	return token.SignedString([]byte(jwtSecret))
}

func checkStaffExists(username string) (bool, error) {
	var existingStaff models.Staff
	result := initializers.DB.Where("username = ?", username).Find(&existingStaff)
	return result.RowsAffected > 0, result.Error
}

func findStaffByUsername(username string) (models.Staff, error) {
	var staff models.Staff
	result := initializers.DB.Where("username = ?", username).First(&staff)
	return staff, result.Error
}

// Signup registers a console account. Registration is gated by a shared
// signup code so walk-in customers cannot create staff accounts.
func Signup(ctx *gin.Context) {
	var signUpData struct {
		Fullname   string `json:"fullname"`
		Username   string `json:"username" binding:"required"`
		Password   string `json:"password" binding:"required"`
		SignupCode string `json:"signupCode" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&signUpData); err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, msgInvalidInput)
		return
	}

	if signUpData.SignupCode != os.Getenv("STAFF_SIGNUP_CODE") {
		sendErrorResponse(ctx, http.StatusForbidden, msgInvalidSignupCode)
		return
	}

	exists, err := checkStaffExists(signUpData.Username)
	if err != nil {
		log.Println("Database error during staff check:", err)
		sendErrorResponse(ctx, http.StatusInternalServerError, msgInternalServerError)
		return
	}
	if exists {
		sendErrorResponse(ctx, http.StatusBadRequest, msgStaffAlreadyExists)
		return
	}

	hashedPassword, err := hashPassword(signUpData.Password)
	if err != nil {
		log.Println("Password hashing error:", err)
		sendErrorResponse(ctx, http.StatusInternalServerError, msgFailedToHashPassword)
		return
	}

	staff := models.Staff{
		Fullname: signUpData.Fullname,
		Username: signUpData.Username,
		Password: hashedPassword,
		Role:     "staff",
	}
	if err := initializers.DB.Create(&staff).Error; err != nil {
		log.Println("Database error during staff creation:", err)
		sendErrorResponse(ctx, http.StatusInternalServerError, msgInternalServerError)
		return
	}

	sendJSONResponse(ctx, http.StatusCreated, gin.H{"message": msgStaffCreated})
}

// Login authenticates a staff member and issues a JWT for the console.
func Login(ctx *gin.Context) {
	var loginData models.LoginData
	if err := ctx.ShouldBindJSON(&loginData); err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, msgInvalidInput)
		return
	}

	staff, err := findStaffByUsername(loginData.Username)
	if err != nil {
		sendErrorResponse(ctx, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}

	if err := comparePasswords(staff.Password, loginData.Password); err != nil {
		sendErrorResponse(ctx, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}

	token, err := generateJWT(staff)
	if err != nil {
		log.Println("Token generation error:", err)
		sendErrorResponse(ctx, http.StatusInternalServerError, msgFailedToGenerateToken)
		return
	}

	sendJSONResponse(ctx, http.StatusOK, gin.H{
		"token": token,
		"staff": gin.H{
			"id":       staff.ID,
			"fullname": staff.Fullname,
			"username": staff.Username,
			"role":     staff.Role,
		},
	})
}
