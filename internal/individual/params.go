package individual

import (
	"strconv"

	"Constituent/internal/model"
)

// Field 格式化用到的参数 key
type Field string

const (
	FirstName    Field = "first_name"
	MiddleName   Field = "middle_name"
	LastName     Field = "last_name"
	NickName     Field = "nick_name"
	PrefixID     Field = "prefix_id"
	SuffixID     Field = "suffix_id"
	PrefixLabel  Field = "prefix_id:label"
	SuffixLabel  Field = "suffix_id:label"
	FormalTitle  Field = "formal_title"
	BirthDate    Field = "birth_date"
	DeceasedDate Field = "deceased_date"
	SortName     Field = "sort_name"
	DisplayName  Field = "display_name"
	ContactType  Field = "contact_type"
	UserUniqueID Field = "user_unique_id"
	Email        Field = "email" // 只在模板渲染时出现，值为主邮箱
)

// 去重合并时用字面量 "null" 表示清空，这些字段计算展示名前先转成空串
var nullableFields = []Field{FirstName, MiddleName, LastName, NickName, FormalTitle, BirthDate, DeceasedDate}

const nullValue = "null"

// EmailBlock 请求里的邮箱项；IsPrimary 为 nil 表示没有 is_primary 这个 key
type EmailBlock struct {
	Email     string
	IsPrimary *bool
}

// Params 一次创建/更新请求的字段集合
//
// Has 和 Get 分开：key 存在但值为空（显式清空）与 key 不存在的处理不同
type Params struct {
	values map[Field]string

	Email          []EmailBlock
	PreserveDBName bool
}

func NewParams() *Params {
	return &Params{values: make(map[Field]string)}
}

func (p *Params) Set(f Field, v string) {
	if p.values == nil {
		p.values = make(map[Field]string)
	}
	p.values[f] = v
}

// SetInt 选项类字段，0 记为空串
func (p *Params) SetInt(f Field, v int) {
	if v == 0 {
		p.Set(f, "")
		return
	}
	p.Set(f, strconv.Itoa(v))
}

func (p *Params) Get(f Field) string {
	return p.values[f]
}

// Int 选项类字段转 int，非法或为空返回 0
func (p *Params) Int(f Field) int {
	v, err := strconv.Atoi(p.values[f])
	if err != nil {
		return 0
	}
	return v
}

func (p *Params) Has(f Field) bool {
	_, ok := p.values[f]
	return ok
}

// Map 返回以字符串为 key 的拷贝，交给模板渲染
func (p *Params) Map() map[string]string {
	out := make(map[string]string, len(p.values))
	for k, v := range p.values {
		out[string(k)] = v
	}
	return out
}

// DataExists 只有 Individual 才需要格式化
func (p *Params) DataExists() bool {
	return p.Get(ContactType) == string(model.ContactTypeIndividual)
}

// primaryEmail 按顺序取第一个带 is_primary key 的邮箱，不看 is_primary 的值
func (p *Params) primaryEmail() string {
	for _, block := range p.Email {
		if block.IsPrimary != nil {
			return block.Email
		}
	}
	return ""
}

func (p *Params) normalizeNulls() {
	for _, f := range nullableFields {
		if v, ok := p.values[f]; ok && v == nullValue {
			p.values[f] = ""
		}
	}
}

// FromContact 用已持久化的联系人构造参数，批量重建姓名时使用
func FromContact(c *model.Contact) *Params {
	p := NewParams()
	p.Set(ContactType, string(c.ContactType))
	p.Set(FirstName, c.FirstName)
	p.Set(MiddleName, c.MiddleName)
	p.Set(LastName, c.LastName)
	p.Set(NickName, c.NickName)
	p.Set(FormalTitle, c.FormalTitle)
	p.SetInt(PrefixID, c.PrefixID)
	p.SetInt(SuffixID, c.SuffixID)
	p.Set(SortName, c.SortName)
	p.Set(DisplayName, c.DisplayName)
	for _, e := range c.Emails {
		if e.IsPrimary {
			primary := true
			p.Email = append(p.Email, EmailBlock{Email: e.Email, IsPrimary: &primary})
		}
	}
	return p
}
