package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"Constituent/internal/cache"
	"Constituent/internal/individual"
	"Constituent/internal/model"
	"Constituent/internal/model/dto"
	"Constituent/internal/repository"
	pkgerrors "Constituent/pkg/errors"
	"Constituent/pkg/logger"
	"Constituent/pkg/metrics"
	"Constituent/pkg/token"
	"Constituent/pkg/tokenfmt"
	"Constituent/storage/database"
	"Constituent/utils"
)

const (
	rebuildLockKey = "name_rebuild"
	rebuildLockTTL = 30 * time.Minute
)

var (
	contactService *ContactService
	contactOnce    sync.Once

	tracer = otel.Tracer("constituent/service")
)

func Contact() *ContactService {
	contactOnce.Do(func() {
		repo := repository.NewContactRepository(database.DB())
		formatter := individual.NewFormatter(
			Option(),
			repo,
			token.Default(),
			Setting(),
			tokenfmt.New(),
		)
		contactService = NewContactService(repo, formatter, cache.NewLocker(nil))
	})

	return contactService
}

// ContactStore 联系人持久化，repository.ContactRepository 实现
type ContactStore interface {
	GetByID(ctx context.Context, id int64) (*model.Contact, error)
	Create(ctx context.Context, contact *model.Contact) error
	Update(ctx context.Context, contact *model.Contact, replaceEmails bool) error
	UpdateNames(ctx context.Context, id int64, sortName, displayName string) error
	FindIndividualsInBatches(ctx context.Context, batchSize int, fn func(batch []*model.Contact) error) error
}

// Locker 带持有者 token 的分布式锁，cache.Locker 实现
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Refresh(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, token string) error
}

type ContactService struct {
	store     ContactStore
	formatter *individual.Formatter
	locker    Locker
}

func NewContactService(store ContactStore, formatter *individual.Formatter, locker Locker) *ContactService {
	return &ContactService{
		store:     store,
		formatter: formatter,
		locker:    locker,
	}
}

// Create 新建个人联系人并计算 sort_name / display_name
func (s *ContactService) Create(ctx context.Context, req dto.ContactRequest) (*dto.ContactResponse, error) {
	if req.ContactType != "" && req.ContactType != string(model.ContactTypeIndividual) {
		return nil, pkgerrors.ContactTypeUnsupported
	}

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	contact := &model.Contact{ContactType: model.ContactTypeIndividual}
	params := paramsFromRequest(req)

	if err := s.format(ctx, params, contact); err != nil {
		return nil, err
	}
	if err := applyParams(contact, params); err != nil {
		return nil, err
	}
	contact.Emails = emailsFromRequest(req.Email)

	if err := s.store.Create(ctx, contact); err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	logger.Logger.Info("Contact created",
		zap.Int64("contact_id", contact.ID),
		zap.String("sort_name", contact.SortName),
	)

	return s.toResponse(ctx, contact), nil
}

// Update 更新个人联系人，email 列表出现时整体替换
func (s *ContactService) Update(ctx context.Context, id int64, req dto.ContactRequest) (*dto.ContactResponse, error) {
	contact, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !contact.IsIndividual() ||
		(req.ContactType != "" && req.ContactType != string(model.ContactTypeIndividual)) {
		return nil, pkgerrors.ContactTypeUnsupported
	}

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	params := paramsFromRequest(req)

	if err := s.format(ctx, params, contact); err != nil {
		return nil, err
	}
	if err := applyParams(contact, params); err != nil {
		return nil, err
	}

	replaceEmails := req.Email != nil
	if replaceEmails {
		contact.Emails = emailsFromRequest(req.Email)
	}

	if err := s.store.Update(ctx, contact, replaceEmails); err != nil {
		return nil, fmt.Errorf("failed to update contact %d: %w", id, err)
	}

	logger.Logger.Info("Contact updated",
		zap.Int64("contact_id", contact.ID),
		zap.String("sort_name", contact.SortName),
		zap.Bool("preserve_db_name", req.PreserveDBName.Bool()),
	)

	return s.toResponse(ctx, contact), nil
}

// Get 查询联系人
func (s *ContactService) Get(ctx context.Context, id int64) (*dto.ContactResponse, error) {
	contact, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.toResponse(ctx, contact), nil
}

// RebuildNames 按当前姓名格式重新计算所有个人联系人的姓名，返回实际更新的条数
// 其他实例正在重建时返回 errors.RebuildRunning，由调用方稍后重试
func (s *ContactService) RebuildNames(ctx context.Context, batchSize int) (updated int, err error) {
	ctx, span := tracer.Start(ctx, "ContactService.RebuildNames",
		trace.WithAttributes(attribute.Int("rebuild.batch_size", batchSize)),
	)
	defer func() {
		span.SetAttributes(attribute.Int("rebuild.updated", updated))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	lockToken, locked, err := s.locker.TryLock(ctx, rebuildLockKey, rebuildLockTTL)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire rebuild lock: %w", err)
	}
	if !locked {
		logger.Logger.Info("Name rebuild already running")
		return 0, pkgerrors.RebuildRunning
	}
	defer func() {
		if err := s.locker.Unlock(ctx, rebuildLockKey, lockToken); err != nil {
			logger.Logger.Warn("Failed to release rebuild lock", zap.Error(err))
		}
	}()

	err = s.store.FindIndividualsInBatches(ctx, batchSize, func(batch []*model.Contact) error {
		// 每批续期一次，锁丢了就停下
		held, err := s.locker.Refresh(ctx, rebuildLockKey, lockToken, rebuildLockTTL)
		if err != nil {
			return err
		}
		if !held {
			return fmt.Errorf("rebuild lock lost: %w", pkgerrors.RebuildRunning)
		}

		for _, c := range batch {
			formatted := *c
			if err := s.format(ctx, individual.FromContact(c), &formatted); err != nil {
				return err
			}

			if formatted.SortName == c.SortName && formatted.DisplayName == c.DisplayName {
				continue
			}

			if err := s.store.UpdateNames(ctx, c.ID, formatted.SortName, formatted.DisplayName); err != nil {
				return fmt.Errorf("failed to update names of contact %d: %w", c.ID, err)
			}
			updated++
			metrics.RebuildUpdated(ctx, 1)
		}
		return nil
	})
	if err != nil {
		return updated, err
	}

	return updated, nil
}

func (s *ContactService) get(ctx context.Context, id int64) (*model.Contact, error) {
	if id <= 0 {
		return nil, pkgerrors.InvalidContactID
	}

	contact, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ContactNotFound
		}
		return nil, fmt.Errorf("failed to query contact %d: %w", id, err)
	}

	return contact, nil
}

func (s *ContactService) format(ctx context.Context, params *individual.Params, contact *model.Contact) error {
	formatted, err := s.formatter.Format(ctx, params, contact)
	if err != nil {
		return fmt.Errorf("failed to format contact name: %w", err)
	}
	if formatted == nil {
		return pkgerrors.ContactTypeUnsupported
	}
	return nil
}

func (s *ContactService) toResponse(ctx context.Context, c *model.Contact) *dto.ContactResponse {
	emails := make([]dto.EmailResponse, 0, len(c.Emails))
	for _, e := range c.Emails {
		emails = append(emails, dto.EmailResponse{
			Email:        e.Email,
			IsPrimary:    e.IsPrimary,
			LocationType: e.LocationType,
		})
	}

	return &dto.ContactResponse{
		ID:           c.ID,
		ContactType:  string(c.ContactType),
		FirstName:    c.FirstName,
		MiddleName:   c.MiddleName,
		LastName:     c.LastName,
		NickName:     c.NickName,
		FormalTitle:  c.FormalTitle,
		PrefixID:     c.PrefixID,
		SuffixID:     c.SuffixID,
		SortName:     c.SortName,
		DisplayName:  c.DisplayName,
		PlainName:    s.formatter.DisplayName(ctx, c),
		BirthDate:    utils.FormatDate(c.BirthDate),
		DeceasedDate: utils.FormatDate(c.DeceasedDate),
		Emails:       emails,
		UpdatedAt:    c.UpdatedAt,
	}
}

func validateRequest(req dto.ContactRequest) error {
	for _, e := range req.Email {
		if !utils.ValidateEmail(e.Email) {
			return pkgerrors.InvalidEmail
		}
	}

	for _, d := range []*string{req.BirthDate, req.DeceasedDate} {
		if d == nil {
			continue
		}
		if _, err := utils.ParseDate(*d); err != nil {
			return pkgerrors.InvalidDate
		}
	}

	return nil
}

// paramsFromRequest 只放入请求里出现的字段
func paramsFromRequest(req dto.ContactRequest) *individual.Params {
	params := individual.NewParams()
	params.Set(individual.ContactType, string(model.ContactTypeIndividual))
	params.PreserveDBName = req.PreserveDBName.Bool()

	strs := []struct {
		field individual.Field
		value *string
	}{
		{individual.FirstName, req.FirstName},
		{individual.MiddleName, req.MiddleName},
		{individual.LastName, req.LastName},
		{individual.NickName, req.NickName},
		{individual.FormalTitle, req.FormalTitle},
		{individual.BirthDate, req.BirthDate},
		{individual.DeceasedDate, req.DeceasedDate},
		{individual.SortName, req.SortName},
		{individual.DisplayName, req.DisplayName},
		{individual.UserUniqueID, req.UserUniqueID},
	}
	for _, f := range strs {
		if f.value != nil {
			params.Set(f.field, *f.value)
		}
	}

	if req.PrefixID != nil {
		params.SetInt(individual.PrefixID, *req.PrefixID)
	}
	if req.SuffixID != nil {
		params.SetInt(individual.SuffixID, *req.SuffixID)
	}

	for _, e := range req.Email {
		params.Email = append(params.Email, individual.EmailBlock{
			Email:     strings.TrimSpace(e.Email),
			IsPrimary: dto.FlagPtr(e.IsPrimary),
		})
	}

	return params
}

// applyParams 把格式化后的参数写回实体；params 里已是去掉 "null"、trim 过、
// preserveDBName 合并后的值
func applyParams(c *model.Contact, params *individual.Params) error {
	strs := []struct {
		field individual.Field
		dest  *string
	}{
		{individual.FirstName, &c.FirstName},
		{individual.MiddleName, &c.MiddleName},
		{individual.LastName, &c.LastName},
		{individual.NickName, &c.NickName},
		{individual.FormalTitle, &c.FormalTitle},
	}
	for _, f := range strs {
		if params.Has(f.field) {
			*f.dest = params.Get(f.field)
		}
	}

	if params.Has(individual.PrefixID) {
		c.PrefixID = params.Int(individual.PrefixID)
	}
	if params.Has(individual.SuffixID) {
		c.SuffixID = params.Int(individual.SuffixID)
	}

	dates := []struct {
		field individual.Field
		dest  **time.Time
	}{
		{individual.BirthDate, &c.BirthDate},
		{individual.DeceasedDate, &c.DeceasedDate},
	}
	for _, d := range dates {
		if !params.Has(d.field) {
			continue
		}
		t, err := utils.ParseDate(params.Get(d.field))
		if err != nil {
			return pkgerrors.InvalidDate
		}
		*d.dest = t
	}

	return nil
}

func emailsFromRequest(items []dto.EmailItem) []model.Email {
	emails := make([]model.Email, 0, len(items))
	for _, item := range items {
		email := model.Email{
			Email:        strings.TrimSpace(item.Email),
			IsPrimary:    item.IsPrimary != nil && item.IsPrimary.Bool(),
			LocationType: item.LocationType,
		}
		if email.LocationType == "" {
			email.LocationType = "Home"
		}
		emails = append(emails, email)
	}
	return emails
}
