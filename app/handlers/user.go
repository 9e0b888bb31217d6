package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/coffeeshop/account-service/app/dto"
	"github.com/coffeeshop/account-service/app/errors"
	accountmw "github.com/coffeeshop/account-service/app/middleware"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 500
)

// meHandler returns the authenticated caller's own record.
func (app *application) meHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := accountmw.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "user not found in context", http.StatusUnauthorized)
		return
	}

	user, appErr := app.userService.GetByID(r.Context(), claims.SubjectID)
	if appErr != nil {
		writeErrorResponse(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserResponse(user))
}

// updateMeHandler applies a partial update to the caller's own record.
func (app *application) updateMeHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := accountmw.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "user not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.UserUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, errors.NewValidation("invalid request body"))
		return
	}
	if err := validateRequest(&req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	user, appErr := app.userService.Update(r.Context(), claims.SubjectID, req)
	if appErr != nil {
		writeErrorResponse(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserResponse(user))
}

// listUsersHandler returns one page of the user directory with next/previous
// links. Admin only.
func (app *application) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultPageLimit
	offset := 0

	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			writeErrorResponse(w, errors.NewValidation("limit must be a positive integer"))
			return
		}
		limit = v
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			writeErrorResponse(w, errors.NewValidation("offset must be a non-negative integer"))
			return
		}
		offset = v
	}

	users, total, appErr := app.userService.List(r.Context(), limit, offset)
	if appErr != nil {
		writeErrorResponse(w, appErr)
		return
	}

	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}

	writeJSON(w, http.StatusOK, dto.UserListResponse{
		Items: items,
		Links: paginationLinks(r.URL.Path, limit, offset, total),
	})
}

// getUserHandler returns one user by id. Admin only.
func (app *application) getUserHandler(w http.ResponseWriter, r *http.Request) {
	id, appErr := userIDParam(r)
	if appErr != nil {
		writeErrorResponse(w, appErr)
		return
	}

	user, appErr := app.userService.GetByID(r.Context(), id)
	if appErr != nil {
		writeErrorResponse(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserResponse(user))
}

// deleteUserHandler hard-deletes one user by id. Admin only.
func (app *application) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	id, appErr := userIDParam(r)
	if appErr != nil {
		writeErrorResponse(w, appErr)
		return
	}

	if appErr := app.userService.Delete(r.Context(), id); appErr != nil {
		writeErrorResponse(w, appErr)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func userIDParam(r *http.Request) (int64, *errors.AppError) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewValidation("id must be a positive integer")
	}
	return id, nil
}
