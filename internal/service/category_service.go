package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/ledger/internal/ledger"
)

// CategoryService implements ledger.v1.CategoryService.
type CategoryService struct {
	scoped
}

// NewCategoryService creates a CategoryService.
func NewCategoryService(svc *ledger.Service) *CategoryService {
	return &CategoryService{scoped{ledger: svc}}
}

// Handler returns the service's path prefix and HTTP handler.
func (s *CategoryService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	r := newRoute(opts)
	handle(r, CategoryServiceCreateCategoryProcedure, s.CreateCategory)
	handle(r, CategoryServiceGetCategoryProcedure, s.GetCategory)
	handle(r, CategoryServiceListCategoriesProcedure, s.ListCategories)
	handle(r, CategoryServiceUpdateCategoryProcedure, s.UpdateCategory)
	handle(r, CategoryServiceDeleteCategoryProcedure, s.DeleteCategory)
	return "/" + CategoryServiceName + "/", r.mux
}

func (s *CategoryService) CreateCategory(ctx context.Context, req *connect.Request[CreateCategoryRequest]) (*connect.Response[CategoryResponse], error) {
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.ledger.CreateCategory(ctx, scope, *req.Msg)
	return respond(&CategoryResponse{Category: c}, err)
}

func (s *CategoryService) GetCategory(ctx context.Context, req *connect.Request[GetCategoryRequest]) (*connect.Response[CategoryResponse], error) {
	if err := requireID("id", req.Msg.ID); err != nil {
		return nil, err
	}
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.ledger.GetCategory(ctx, scope, req.Msg.ID)
	return respond(&CategoryResponse{Category: c}, err)
}

func (s *CategoryService) ListCategories(ctx context.Context, req *connect.Request[ListCategoriesRequest]) (*connect.Response[ListCategoriesResponse], error) {
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.ledger.ListCategories(ctx, scope)
	return respond(&ListCategoriesResponse{Categories: categories}, err)
}

func (s *CategoryService) UpdateCategory(ctx context.Context, req *connect.Request[UpdateCategoryRequest]) (*connect.Response[CategoryResponse], error) {
	if err := requireID("id", req.Msg.ID); err != nil {
		return nil, err
	}
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.ledger.UpdateCategory(ctx, scope, req.Msg.ID, req.Msg.CategoryPatch)
	return respond(&CategoryResponse{Category: c}, err)
}

// DeleteCategory fails with CATEGORY_IN_USE while live expenses refer to it.
func (s *CategoryService) DeleteCategory(ctx context.Context, req *connect.Request[DeleteCategoryRequest]) (*connect.Response[DeleteResponse], error) {
	if err := requireID("id", req.Msg.ID); err != nil {
		return nil, err
	}
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	return respond(&DeleteResponse{}, s.ledger.DeleteCategory(ctx, scope, req.Msg.ID))
}
