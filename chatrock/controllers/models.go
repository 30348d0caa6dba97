package controllers

import (
	"chatrock/chatrock/services/catalog"
	"chatrock/chatrock/utils/types"
)

type ModelsController struct {
	catalog *catalog.Catalog
}

func NewModelsController(c *catalog.Catalog) *ModelsController {
	return &ModelsController{catalog: c}
}

func (c *ModelsController) ListModels() types.ModelListResponse {
	descriptors := c.catalog.List()
	out := types.ModelListResponse{Default: c.catalog.DefaultID(), Models: make([]types.ModelInfo, 0, len(descriptors))}
	for _, d := range descriptors {
		out.Models = append(out.Models, types.ModelInfo{ID: d.ID, Label: d.Label, Description: d.Description})
	}
	return out
}
