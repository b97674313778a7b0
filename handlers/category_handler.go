package handlers

import (
	"net/http"

	"github.com/Dosada05/roster-system/services"
)

type CategoryHandler struct {
	categoryService services.CategoryService
}

func NewCategoryHandler(cs services.CategoryService) *CategoryHandler {
	return &CategoryHandler{
		categoryService: cs,
	}
}

func (h *CategoryHandler) GetAllCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryService.GetAllCategories(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, categories, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input services.CategoryInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	category, err := h.categoryService.CreateCategory(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, category, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := urlParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.CategoryInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	category, err := h.categoryService.UpdateCategory(r.Context(), categoryID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, category, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := urlParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.categoryService.DeleteCategory(r.Context(), categoryID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetDelegateAssignments serves GET /categories/{userId}.
func (h *CategoryHandler) GetDelegateAssignments(w http.ResponseWriter, r *http.Request) {
	userID, err := urlParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	assignments, err := h.categoryService.GetDelegateAssignments(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, assignments, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
