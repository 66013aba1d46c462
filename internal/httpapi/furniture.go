package httpapi

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/xenking/furniture-store/internal/domain/catalog"
	"github.com/xenking/furniture-store/internal/domain/furniture"
)

type furnitureJSON struct {
	ID          int        `json:"id"`
	Type        string     `json:"type"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Price       float64    `json:"price"`
	Dimensions  [3]float64 `json:"dimensions"`
	Quantity    int        `json:"quantity"`

	CushionMaterial string `json:"cushion_material,omitempty"`
	FrameMaterial   string `json:"frame_material,omitempty"`
	Capacity        int    `json:"capacity,omitempty"`
	LightSource     string `json:"light_source,omitempty"`
	WallMounted     bool   `json:"wall_mounted,omitempty"`
}

func (h *Handler) furnitureToJSON(it furniture.Item) furnitureJSON {
	return furnitureJSON{
		ID:              it.ID,
		Type:            string(it.Kind),
		Name:            it.Name,
		Description:     it.Description,
		Price:           it.Price.InexactFloat64(),
		Dimensions:      it.Dimensions,
		Quantity:        h.catalog.Quantity(it.ID),
		CushionMaterial: it.Attributes.CushionMaterial,
		FrameMaterial:   it.Attributes.FrameMaterial,
		Capacity:        it.Attributes.Capacity,
		LightSource:     it.Attributes.LightSource,
		WallMounted:     it.Attributes.WallMounted,
	}
}

// searchFurniture handles GET /api/furniture with optional name, min_price,
// max_price, and type query filters.
func (h *Handler) searchFurniture(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filter{
		Name: q.Get("name"),
		Kind: furniture.Kind(q.Get("type")),
	}
	if v := q.Get("min_price"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid min_price")
			return
		}
		f.MinPrice = &d
	}
	if v := q.Get("max_price"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid max_price")
			return
		}
		f.MaxPrice = &d
	}
	if f.Kind != "" && !f.Kind.Valid() {
		writeError(w, http.StatusBadRequest, "unknown furniture type")
		return
	}

	items := h.catalog.Search(f)
	out := make([]furnitureJSON, len(items))
	for i, it := range items {
		out[i] = h.furnitureToJSON(it)
	}
	writeJSON(w, http.StatusOK, out)
}

type createFurnitureRequest struct {
	ID          int        `json:"id,omitempty"`
	Type        string     `json:"type"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Price       float64    `json:"price"`
	Dimensions  [3]float64 `json:"dimensions"`
	Quantity    int        `json:"quantity"`

	CushionMaterial string `json:"cushion_material,omitempty"`
	FrameMaterial   string `json:"frame_material,omitempty"`
	Capacity        int    `json:"capacity,omitempty"`
	LightSource     string `json:"light_source,omitempty"`
	WallMounted     bool   `json:"wall_mounted,omitempty"`
}

// createFurniture handles POST /api/inventory.
func (h *Handler) createFurniture(w http.ResponseWriter, r *http.Request) {
	var req createFurnitureRequest
	if !decodeBody(w, r, &req) {
		return
	}

	it, err := furniture.New(furniture.Kind(req.Type), furniture.Spec{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Price:       decimal.NewFromFloat(req.Price),
		Dimensions:  req.Dimensions,
		Attributes: furniture.Attributes{
			CushionMaterial: req.CushionMaterial,
			FrameMaterial:   req.FrameMaterial,
			Capacity:        req.Capacity,
			LightSource:     req.LightSource,
			WallMounted:     req.WallMounted,
		},
	})
	if err != nil {
		respondError(w, err)
		return
	}

	created, err := h.catalog.Create(it, req.Quantity)
	if err != nil {
		respondError(w, err)
		return
	}
	h.persist(r)
	writeJSON(w, http.StatusCreated, h.furnitureToJSON(*created))
}

type updateFurnitureRequest struct {
	Name        *string     `json:"name"`
	Description *string     `json:"description"`
	Price       *float64    `json:"price"`
	Dimensions  *[3]float64 `json:"dimensions"`
	Quantity    *int        `json:"quantity"`

	CushionMaterial *string `json:"cushion_material"`
	FrameMaterial   *string `json:"frame_material"`
	Capacity        *int    `json:"capacity"`
	LightSource     *string `json:"light_source"`
	WallMounted     *bool   `json:"wall_mounted"`
}

// updateFurniture handles PUT /api/inventory/{id}; only supplied fields are
// overwritten.
func (h *Handler) updateFurniture(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid furniture id")
		return
	}
	var req updateFurnitureRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p := catalog.Patch{
		Name:        req.Name,
		Description: req.Description,
		Dimensions:  req.Dimensions,
		Quantity:    req.Quantity,
	}
	if req.Price != nil {
		d := decimal.NewFromFloat(*req.Price)
		p.Price = &d
	}
	if req.CushionMaterial != nil || req.FrameMaterial != nil || req.Capacity != nil ||
		req.LightSource != nil || req.WallMounted != nil {
		attrs := currentAttributes(h.catalog, id)
		if req.CushionMaterial != nil {
			attrs.CushionMaterial = *req.CushionMaterial
		}
		if req.FrameMaterial != nil {
			attrs.FrameMaterial = *req.FrameMaterial
		}
		if req.Capacity != nil {
			attrs.Capacity = *req.Capacity
		}
		if req.LightSource != nil {
			attrs.LightSource = *req.LightSource
		}
		if req.WallMounted != nil {
			attrs.WallMounted = *req.WallMounted
		}
		p.Attributes = &attrs
	}

	updated, err := h.catalog.Update(id, p)
	if err != nil {
		respondError(w, err)
		return
	}
	h.persist(r)
	writeJSON(w, http.StatusOK, h.furnitureToJSON(*updated))
}

func currentAttributes(cat *catalog.Catalog, id int) furniture.Attributes {
	if it, ok := cat.Get(id); ok {
		return it.Attributes
	}
	return furniture.Attributes{}
}

// deleteFurniture handles DELETE /api/inventory/{id}.
func (h *Handler) deleteFurniture(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid furniture id")
		return
	}
	if err := h.catalog.Delete(id); err != nil {
		respondError(w, err)
		return
	}
	h.persist(r)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Furniture item deleted"})
}
