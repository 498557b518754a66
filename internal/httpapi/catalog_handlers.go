package httpapi

import (
	"net/http"

	"invizible.art/internal/apperr"
	"invizible.art/internal/audit"
	"invizible.art/internal/catalog"
)

type listResponse[T any] struct {
	Items []T `json:"items"`
}

type imageRequest struct {
	FileName *string `json:"file_name"`
}

type checkoutRequest struct {
	Items []catalog.CheckoutItem `json:"items"`
}

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.catalog.ListProducts(r.Context())
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	if products == nil {
		products = []*catalog.Product{}
	}
	writeJSON(w, http.StatusOK, listResponse[*catalog.Product]{Items: products})
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	p, err := a.catalog.GetProduct(r.Context(), id)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	if p == nil {
		a.handleError(w, r, apperr.NotFound("product not found"))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.CreateProductInput
	if err := decodeJSON(w, r, &in, a.maxBody); err != nil {
		a.handleError(w, r, err)
		return
	}
	p, err := a.catalog.CreateProduct(r.Context(), in)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "catalog.product.created", map[string]any{
		"product_id":          p.ID,
		"provider_product_id": p.ProviderProductID,
	})
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	var in catalog.UpdateProductInput
	if err := decodeJSON(w, r, &in, a.maxBody); err != nil {
		a.handleError(w, r, err)
		return
	}
	in.ID = id
	p, err := a.catalog.UpdateProduct(r.Context(), in)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "catalog.product.updated", map[string]any{"product_id": p.ID})
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	if err := a.catalog.DeleteProduct(r.Context(), id); err != nil {
		a.handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "catalog.product.deleted", map[string]any{"product_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleCreateProductImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if err := decodeJSON(w, r, &req, a.maxBody); err != nil {
		a.handleError(w, r, err)
		return
	}
	up, err := a.catalog.CreateProductImage(r.Context(), req.FileName)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, up)
}

func (a *API) handleDeleteProductImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	if err := a.catalog.DeleteProductImage(r.Context(), id); err != nil {
		a.handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "catalog.image.deleted", map[string]any{"image_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(w, r, &req, a.maxBody); err != nil {
		a.handleError(w, r, err)
		return
	}
	cs, err := a.catalog.CreateCheckoutSession(r.Context(), req.Items)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cs)
}

func (a *API) handleListWorks(w http.ResponseWriter, r *http.Request) {
	works, err := a.catalog.ListWorks(r.Context())
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	if works == nil {
		works = []*catalog.Work{}
	}
	writeJSON(w, http.StatusOK, listResponse[*catalog.Work]{Items: works})
}

func (a *API) handleCreateWork(w http.ResponseWriter, r *http.Request) {
	var in catalog.CreateWorkInput
	if err := decodeJSON(w, r, &in, a.maxBody); err != nil {
		a.handleError(w, r, err)
		return
	}
	work, err := a.catalog.CreateWork(r.Context(), in)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "catalog.work.created", map[string]any{"work_id": work.ID})
	writeJSON(w, http.StatusCreated, work)
}

func (a *API) handleCreateWorkImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if err := decodeJSON(w, r, &req, a.maxBody); err != nil {
		a.handleError(w, r, err)
		return
	}
	up, err := a.catalog.CreateWorkImage(r.Context(), req.FileName)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, up)
}
