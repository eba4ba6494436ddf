package individual

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"Constituent/internal/model"
	"Constituent/pkg/logger"
	"Constituent/pkg/metrics"
	"Constituent/pkg/token"
)

var tracer = otel.Tracer("constituent/individual")

// EntityContact 标签查询时的实体名
const EntityContact = "Contact"

// LabelResolver 把前缀/后缀的选项值解析成展示用的 label
type LabelResolver interface {
	Label(ctx context.Context, entity, field, value string) (string, error)
}

// ContactStore 联系人读取，找不到时返回 gorm.ErrRecordNotFound
type ContactStore interface {
	GetByID(ctx context.Context, id int64) (*model.Contact, error)
	GetPrimaryEmail(ctx context.Context, contactID int64) (string, error)
}

// TokenRegistry 模板可用的 token，分类 -> token -> label
type TokenRegistry interface {
	Tokens(ctx context.Context) map[string]map[string]string
}

// Settings 读取 sort_name_format / display_name_format
type Settings interface {
	Get(ctx context.Context, key string) (string, error)
}

// TemplateFormatter 按格式串渲染字段
type TemplateFormatter interface {
	Format(fields map[string]string, format string, tokens []string) string
}

// Formatter 计算个人联系人的 sort_name / display_name，本身不落库
type Formatter struct {
	labels   LabelResolver
	store    ContactStore
	tokens   TokenRegistry
	settings Settings
	tpl      TemplateFormatter
}

func NewFormatter(
	labels LabelResolver,
	store ContactStore,
	tokens TokenRegistry,
	settings Settings,
	tpl TemplateFormatter,
) *Formatter {
	return &Formatter{
		labels:   labels,
		store:    store,
		tokens:   tokens,
		settings: settings,
		tpl:      tpl,
	}
}

// 逐个处理的姓名字段，顺序与合并时一致
var nameFields = []Field{LastName, MiddleName, FirstName, NickName}

// Format 合并 params 与库中已有的值并计算姓名，结果直接写在 contact 上。
// 不是 Individual 时返回 nil, nil。
//
// params 会被修改："null" 归一为空串，前缀/后缀 label 写回，preserveDBName
// 生效的字段写回库里的值。
func (f *Formatter) Format(ctx context.Context, params *Params, contact *model.Contact) (result *model.Contact, err error) {
	if !params.DataExists() {
		return nil, nil
	}

	ctx, span := tracer.Start(ctx, "Formatter.Format",
		trace.WithAttributes(attribute.Int64("contact.id", contact.ID)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	params.normalizeNulls()

	names := map[Field]string{
		FirstName:  strings.TrimSpace(params.Get(FirstName)),
		MiddleName: strings.TrimSpace(params.Get(MiddleName)),
		LastName:   strings.TrimSpace(params.Get(LastName)),
		NickName:   params.Get(NickName),
	}
	for _, field := range []Field{FirstName, MiddleName, LastName} {
		if params.Has(field) {
			params.Set(field, names[field])
		}
	}

	prefixID := params.Get(PrefixID)
	suffixID := params.Get(SuffixID)
	formalTitle := params.Get(FormalTitle)

	prefix := f.label(ctx, PrefixID, prefixID)
	suffix := f.label(ctx, SuffixID, suffixID)
	params.Set(PrefixLabel, prefix)
	params.Set(SuffixLabel, suffix)

	var storedEmail string
	if contact.ID != 0 {
		existing, err := f.store.GetByID(ctx, contact.ID)
		switch {
		case err == nil:
			storedEmail = primaryStoredEmail(existing.Emails)

			// 优先级：preserveDBName 且库里有值 > 请求里显式传了 > 库里的非空值
			preserve := params.PreserveDBName

			for _, field := range nameFields {
				dbValue := contactString(existing, field)
				switch {
				case preserve && dbValue != "":
					params.Set(field, dbValue)
					setContactString(contact, field, dbValue)
					names[field] = dbValue
				case params.Has(field):
					names[field] = params.Get(field)
				case dbValue != "":
					names[field] = dbValue
				}
			}

			// 前缀/后缀只在请求值非空时采用，显式传空不会清掉 label
			prefixID, prefix = f.mergeOption(ctx, params, contact, PrefixID, PrefixLabel, existing.PrefixID, prefixID, prefix)
			suffixID, suffix = f.mergeOption(ctx, params, contact, SuffixID, SuffixLabel, existing.SuffixID, suffixID, suffix)

			switch {
			case preserve && existing.FormalTitle != "":
				params.Set(FormalTitle, existing.FormalTitle)
				contact.FormalTitle = existing.FormalTitle
				formalTitle = existing.FormalTitle
			case params.Has(FormalTitle):
				formalTitle = params.Get(FormalTitle)
			case existing.FormalTitle != "":
				formalTitle = existing.FormalTitle
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			logger.Logger.Debug("Contact not found on reload, skipping merge",
				zap.Int64("contact_id", contact.ID),
			)
		default:
			return nil, fmt.Errorf("failed to reload contact %d: %w", contact.ID, err)
		}
	}

	var sortName, displayName string
	templated := false

	if names[LastName] != "" || names[FirstName] != "" || names[MiddleName] != "" {
		formatted := params.Map()
		nameParams := []struct {
			key   Field
			value string
		}{
			{FirstName, names[FirstName]},
			{MiddleName, names[MiddleName]},
			{LastName, names[LastName]},
			{NickName, names[NickName]},
			{SuffixLabel, suffix},
			{PrefixLabel, prefix},
			{PrefixID, prefixID},
			{SuffixID, suffixID},
			{FormalTitle, formalTitle},
			{Email, templateEmail(params, storedEmail)},
		}
		for _, np := range nameParams {
			if formatted[string(np.key)] == "" && np.value != "" {
				formatted[string(np.key)] = np.value
			}
		}

		tokenFields := token.Flatten(f.tokens.Tokens(ctx))

		sortFormat, err := f.settings.Get(ctx, model.SettingSortNameFormat)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s: %w", model.SettingSortNameFormat, err)
		}
		sortName = strings.TrimSpace(f.tpl.Format(formatted, sortFormat, tokenFields))

		displayFormat, err := f.settings.Get(ctx, model.SettingDisplayNameFormat)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s: %w", model.SettingDisplayNameFormat, err)
		}
		displayName = strings.TrimSpace(f.tpl.Format(formatted, displayFormat, tokenFields))
		templated = true
	}

	var email, uniqID string
	if sortName == "" || displayName == "" {
		email = params.primaryEmail()
		uniqID = params.Get(UserUniqueID)

		if email == "" && contact.ID != 0 {
			primary, err := f.store.GetPrimaryEmail(ctx, contact.ID)
			switch {
			case err == nil:
				email = primary
			case errors.Is(err, gorm.ErrRecordNotFound):
			default:
				return nil, fmt.Errorf("failed to get primary email of contact %d: %w", contact.ID, err)
			}
		}
	}

	// display 在前：sort_name 最后可以回退到 display_name
	displayName = fallbackName(displayName, email, uniqID, params.Get(DisplayName), displayName)
	if displayName != "" {
		contact.DisplayName = displayName
	}

	sortName = fallbackName(sortName, email, uniqID, params.Get(SortName), displayName)
	if sortName != "" {
		contact.SortName = sortName
	}

	fallback := "none"
	switch {
	case !templated:
		fallback = "no_name"
	case email != "" || uniqID != "":
		fallback = "partial"
	}
	span.SetAttributes(attribute.String("name.fallback", fallback))
	metrics.NameFormatted(ctx, fallback)

	return contact, nil
}

// templateEmail 模板里 {contact.email} 的值：请求里的主邮箱，其次库里的主邮箱
func templateEmail(params *Params, stored string) string {
	if email := params.primaryEmail(); email != "" {
		return email
	}
	return stored
}

func primaryStoredEmail(emails []model.Email) string {
	for _, e := range emails {
		if e.IsPrimary {
			return e.Email
		}
	}
	return ""
}

// DisplayName 不走模板的展示名：前缀 名 中间名 姓 后缀
func (f *Formatter) DisplayName(ctx context.Context, contact *model.Contact) string {
	parts := []string{
		f.label(ctx, PrefixID, optionString(contact.PrefixID)),
		contact.FirstName,
		contact.MiddleName,
		contact.LastName,
		f.label(ctx, SuffixID, optionString(contact.SuffixID)),
	}

	kept := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}

	return strings.Join(kept, " ")
}

func (f *Formatter) mergeOption(
	ctx context.Context,
	params *Params,
	contact *model.Contact,
	field, labelField Field,
	dbValue int,
	code, label string,
) (string, string) {
	switch {
	case params.PreserveDBName && dbValue != 0:
		code = optionString(dbValue)
		params.Set(field, code)
		setContactOption(contact, field, dbValue)
		label = f.label(ctx, field, code)
		params.Set(labelField, label)
	case params.Has(field):
		if v := params.Get(field); v != "" {
			label = f.label(ctx, field, v)
		}
	case dbValue != 0:
		label = f.label(ctx, field, optionString(dbValue))
	}

	return code, label
}

func (f *Formatter) label(ctx context.Context, field Field, value string) string {
	if value == "" || value == "0" {
		return ""
	}

	label, err := f.labels.Label(ctx, EntityContact, string(field), value)
	if err != nil {
		logger.Logger.Warn("Failed to resolve option label",
			zap.String("field", string(field)),
			zap.String("value", value),
			zap.Error(err),
		)
		return ""
	}

	return label
}

// fallbackName 依次回退：邮箱、unique id、请求里已有的值、计算出的 display name
func fallbackName(current, email, uniqID, prior, display string) string {
	if current != "" {
		return current
	}

	for _, candidate := range []string{email, uniqID, prior, display} {
		if candidate != "" {
			return candidate
		}
	}

	return ""
}

func optionString(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func contactString(c *model.Contact, field Field) string {
	switch field {
	case FirstName:
		return c.FirstName
	case MiddleName:
		return c.MiddleName
	case LastName:
		return c.LastName
	case NickName:
		return c.NickName
	case FormalTitle:
		return c.FormalTitle
	}
	return ""
}

func setContactString(c *model.Contact, field Field, v string) {
	switch field {
	case FirstName:
		c.FirstName = v
	case MiddleName:
		c.MiddleName = v
	case LastName:
		c.LastName = v
	case NickName:
		c.NickName = v
	case FormalTitle:
		c.FormalTitle = v
	}
}

func setContactOption(c *model.Contact, field Field, v int) {
	switch field {
	case PrefixID:
		c.PrefixID = v
	case SuffixID:
		c.SuffixID = v
	}
}
