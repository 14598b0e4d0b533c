package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zarkopopovski/mood-chat/db"
	"github.com/zarkopopovski/mood-chat/models"
)

type UserController struct {
	DBManager *db.DBManager
	Logger    *zap.Logger
	Validate  *validator.Validate
}

type signupRequest struct {
	Username string `json:"username" validate:"required"`
}

func (uController *UserController) Signup(w http.ResponseWriter, r *http.Request) {
	var request signupRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "Invalid request body"})
		return
	}
	defer r.Body.Close()

	username := strings.TrimSpace(request.Username)

	if err := uController.Validate.Struct(request); err != nil || username == "" {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "Username cannot be empty"})
		return
	}

	queryStr := "SELECT * FROM users WHERE username=$1 LIMIT 1"

	existingUser := models.User{}

	if err := uController.DBManager.DB.Get(&existingUser, queryStr, username); err == nil {
		jsonResponse(w, http.StatusConflict, map[string]string{"status": "error", "message": "Username already exists. Please login instead."})
		return
	}

	insertStr := "INSERT INTO users(username, created_at) VALUES($1, $2)"

	if _, err := uController.DBManager.DB.Exec(insertStr, username, db.Now()); err != nil {
		uController.Logger.Error("failed to create user", zap.String("username", username), zap.Error(err))

		jsonResponse(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "Failed to create user"})
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{
		"username": username,
		"status":   "success",
		"message":  "User registered successfully",
	})
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
}

func (uController *UserController) Login(w http.ResponseWriter, r *http.Request) {
	var request loginRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "Invalid request body"})
		return
	}
	defer r.Body.Close()

	username := strings.TrimSpace(request.Username)

	if err := uController.Validate.Struct(request); err != nil || username == "" {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "Username cannot be empty"})
		return
	}

	queryStr := "SELECT * FROM users WHERE username=$1 LIMIT 1"

	user := models.User{}

	if err := uController.DBManager.DB.Get(&user, queryStr, username); err != nil {
		jsonResponse(w, http.StatusNotFound, map[string]string{"status": "error", "message": "User not found. Please signup first."})
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{
		"username": username,
		"status":   "success",
		"message":  "Login successful",
	})
}

// CheckUser tells the frontend whether to route a name to login or signup.
func (uController *UserController) CheckUser(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	queryStr := "SELECT COUNT(*) FROM users WHERE username=$1"

	var count int
	if err := uController.DBManager.DB.Get(&count, queryStr, strings.TrimSpace(username)); err != nil {
		uController.Logger.Error("failed to check user", zap.String("username", username), zap.Error(err))

		jsonResponse(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "Something got wrong..."})
		return
	}

	action := "signup"
	if count > 0 {
		action = "login"
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"username": username,
		"exists":   count > 0,
		"action":   action,
	})
}
