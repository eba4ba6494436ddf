package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"Constituent/internal/model/dto"
	"Constituent/internal/service"
	"Constituent/pkg/errors"
	"Constituent/pkg/response"
)

// ContactService 联系人业务，service.ContactService 实现
type ContactService interface {
	Create(ctx context.Context, req dto.ContactRequest) (*dto.ContactResponse, error)
	Update(ctx context.Context, id int64, req dto.ContactRequest) (*dto.ContactResponse, error)
	Get(ctx context.Context, id int64) (*dto.ContactResponse, error)
}

// contacts 测试里替换成 sqlite 版本
var contacts = func() ContactService {
	return service.Contact()
}

// CreateContact 新建个人联系人
// POST /v1/contacts
func CreateContact(ctx context.Context, c *app.RequestContext) {
	var req dto.ContactRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	resp, err := contacts().Create(ctx, req)
	if err != nil {
		logError(c, "Failed to create contact", err)
		response.Error(ctx, c, err)
		return
	}

	response.Created(ctx, c, resp)
}

// UpdateContact 更新个人联系人
// PUT /v1/contacts/:contact_id
func UpdateContact(ctx context.Context, c *app.RequestContext) {
	id, err := parseContactID(c.Param("contact_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	var req dto.ContactRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	resp, err := contacts().Update(ctx, id, req)
	if err != nil {
		logError(c, "Failed to update contact", err, zap.Int64("contact_id", id))
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, resp)
}

// GetContact 查询联系人
// GET /v1/contacts/:contact_id
func GetContact(ctx context.Context, c *app.RequestContext) {
	id, err := parseContactID(c.Param("contact_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	resp, err := contacts().Get(ctx, id)
	if err != nil {
		logError(c, "Failed to get contact", err, zap.Int64("contact_id", id))
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, resp)
}

func parseContactID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.InvalidContactID
	}
	return id, nil
}
