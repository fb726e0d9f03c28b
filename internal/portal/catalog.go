// Package portal serves the list, detail and form pages of the eight training
// resources. Every page is driven by the declarative Catalog.
package portal

import (
	"strconv"
	"strings"

	"github.com/akademi/egitim-portal/internal/rbac"
)

// FieldKind selects how a field is parsed, rendered and sent to the backend.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindEmail    FieldKind = "email"
	KindPhone    FieldKind = "tel"
	KindTextarea FieldKind = "textarea"
	KindDate     FieldKind = "date"
	KindInt      FieldKind = "int"
	KindMinutes  FieldKind = "minutes"
	KindMoney    FieldKind = "money"
	KindSelect   FieldKind = "select"
	// KindChoices is a multi-select sent as one comma separated string.
	KindChoices FieldKind = "choices"
	// KindStrings is a multi-select sent as a JSON array of strings.
	KindStrings FieldKind = "strings"
	KindRef     FieldKind = "ref"
	KindRefs    FieldKind = "refs"
	// KindReadOnly fields only appear on detail pages.
	KindReadOnly FieldKind = "readonly"
)

// Field describes one attribute of a resource.
type Field struct {
	// Name is the request key on the backend wire.
	Name  string
	Label string
	Kind  FieldKind
	// Rules is a validator tag applied to the parsed value.
	Rules   string
	Options []string
	// Ref is the Catalog key of the referenced resource.
	Ref string
	// From is the response key carrying the related object(s).
	From string
	// After names a date field this one may not precede.
	After   string
	Default string
	Column  bool
	Badge   bool
}

// Editable reports whether the field appears on forms.
func (f Field) Editable() bool {
	return f.Kind != KindReadOnly
}

// Multiple reports whether the form control accepts several values.
func (f Field) Multiple() bool {
	return f.Kind == KindChoices || f.Kind == KindStrings || f.Kind == KindRefs
}

// Required reports whether the rules demand a value.
func (f Field) Required() bool {
	for _, rule := range strings.Split(f.Rules, ",") {
		if rule == "required" {
			return true
		}
	}
	return false
}

// InputType is the HTML input type for single-value controls.
func (f Field) InputType() string {
	switch f.Kind {
	case KindEmail:
		return "email"
	case KindPhone:
		return "tel"
	case KindDate:
		return "date"
	case KindInt, KindMinutes, KindMoney:
		return "number"
	}
	return "text"
}

// DisplayKey is the response key shown for the field.
func (f Field) DisplayKey() string {
	if f.From != "" {
		return f.From
	}
	return f.Name
}

// Filter is one list filter sent as a query parameter.
type Filter struct {
	Name    string
	Label   string
	Options []string
	Ref     string
}

// Routes are the chi patterns of one resource's pages.
type Routes struct {
	List   string
	New    string
	Edit   string
	Detail string
	Delete string
}

func entityRoutes(base string) Routes {
	return Routes{
		List:   base,
		New:    base + "/new",
		Edit:   base + "/edit/{id}",
		Detail: base + "/{id}",
		Delete: base + "/{id}/delete",
	}
}

// Path fills the {id} placeholder of pattern.
func Path(pattern string, id int64) string {
	return strings.Replace(pattern, "{id}", strconv.FormatInt(id, 10), 1)
}

// Resource is one backend collection with its pages.
type Resource struct {
	Key      string
	Title    string
	Singular string
	Module   rbac.Module
	// API is the backend collection path.
	API string
	// Paged resources are listed through the /page endpoint.
	Paged       bool
	PageSize    int
	DefaultSort string
	Routes      Routes
	Fields      []Field
	Filters     []Filter
}

// Columns returns the fields shown in list tables.
func (r *Resource) Columns() []Field {
	out := make([]Field, 0, len(r.Fields))
	for _, f := range r.Fields {
		if f.Column {
			out = append(out, f)
		}
	}
	return out
}

// FormFields returns the fields shown on create and edit forms.
func (r *Resource) FormFields() []Field {
	out := make([]Field, 0, len(r.Fields))
	for _, f := range r.Fields {
		if f.Editable() {
			out = append(out, f)
		}
	}
	return out
}

// SortKeys lists the fields a list may be ordered by.
func (r *Resource) SortKeys() map[string]bool {
	keys := map[string]bool{"id": true}
	for _, f := range r.Columns() {
		if f.From == "" && f.Kind != KindRefs && f.Kind != KindStrings {
			keys[f.Name] = true
		}
	}
	return keys
}

// Grant returns the grant needed for action on this resource.
func (r *Resource) Grant(action rbac.Action) string {
	return rbac.G(r.Module, action).String()
}

var (
	trainingStatuses = []string{"Havuz", "Teslim", "Gerçekleşme", "Tamamlanan", "Kontrol", "Medya", "LMS", "Plan", "İptal", "Yayından Kaldırılan", "Anlaşma", "İlan"}
	trainingLevels   = []string{"Temel", "Orta", "İleri"}
	audiences        = []string{"Ortaokul", "Lise", "Üniversite", "Kurum Personeli", "Mezun", "Diğer"}
	paymentStatuses  = []string{"Ödendi", "Bekliyor", "İptal"}
	paymentSources   = []string{"Banka Havalesi", "Kredi Kartı", "Nakit", "Çek", "Sponsor", "Diğer"}
	paymentChannels  = []string{"Havale", "Nakit", "POS", "Sistem içi", "Çek", "Diğer"}
	stakeholderTypes = []string{"Kurum", "Birey", "STK", "Kamu", "Özel Sektör", "Üniversite"}
	titles           = []string{"Müfredat Sorumlusu", "Operasyon Sorumlusu", "Proje Sorumlusu", "TGTD", "Medya Sorumlusu", "Ödeme Sorumlusu"}
)

// Catalog lists every resource in navigation order.
var Catalog = []*Resource{
	{
		Key: "egitim", Title: "Eğitimler", Singular: "Eğitim", Module: rbac.ModuleEducation,
		API: "/egitim", PageSize: 10, DefaultSort: "id,desc", Routes: entityRoutes("/egitim"),
		Fields: []Field{
			{Name: "ad", Label: "Ad", Kind: KindText, Rules: "required,max=200", Column: true},
			{Name: "egitimKodu", Label: "Eğitim Kodu", Kind: KindText, Rules: "max=50", Column: true},
			{Name: "programId", Label: "Program ID", Kind: KindText, Rules: "max=50", Column: true},
			{Name: "seviye", Label: "Seviye", Kind: KindSelect, Options: trainingLevels, Column: true},
			{Name: "hedefKitle", Label: "Hedef Kitle", Kind: KindChoices, Options: audiences},
			{Name: "aciklama", Label: "Açıklama", Kind: KindTextarea, Rules: "max=2000"},
			{Name: "baslangicTarihi", Label: "Başlangıç Tarihi", Kind: KindDate, Column: true},
			{Name: "bitisTarihi", Label: "Bitiş Tarihi", Kind: KindDate, After: "baslangicTarihi", Column: true},
			{Name: "egitimSaati", Label: "Eğitim Saati", Kind: KindMinutes, Rules: "omitempty,min=0", Column: true},
			{Name: "durum", Label: "Durum", Kind: KindSelect, Options: trainingStatuses, Default: "Havuz", Column: true, Badge: true},
			{Name: "kategoriIds", Label: "Kategoriler", Kind: KindRefs, Ref: "kategori", From: "kategoriler"},
			{Name: "egitmenIds", Label: "Eğitmenler", Kind: KindRefs, Ref: "egitmen", From: "egitmenler"},
			{Name: "sorumluIds", Label: "Sorumlular", Kind: KindRefs, Ref: "sorumlu", From: "sorumlular"},
			{Name: "paydasIds", Label: "Paydaşlar", Kind: KindRefs, Ref: "paydas", From: "paydaslar"},
			{Name: "projeId", Label: "Proje", Kind: KindRef, Ref: "proje", From: "proje"},
		},
		Filters: []Filter{
			{Name: "il", Label: "İl"},
			{Name: "yil", Label: "Yıl"},
			{Name: "durum", Label: "Durum", Options: trainingStatuses},
		},
	},
	{
		Key: "egitmen", Title: "Eğitmenler", Singular: "Eğitmen", Module: rbac.ModuleTrainer,
		API: "/egitmen", Paged: true, Routes: entityRoutes("/egitmen"),
		Fields: []Field{
			{Name: "ad", Label: "Ad", Kind: KindText, Rules: "required,max=100", Column: true},
			{Name: "soyad", Label: "Soyad", Kind: KindText, Rules: "required,max=100", Column: true},
			{Name: "email", Label: "Email", Kind: KindEmail, Rules: "omitempty,email", Column: true},
			{Name: "telefon", Label: "Telefon", Kind: KindPhone, Rules: "max=20", Column: true},
			{Name: "il", Label: "İl", Kind: KindText, Rules: "max=100", Column: true},
			{Name: "calismaYeri", Label: "Çalışma Yeri", Kind: KindText, Rules: "max=200", Column: true},
		},
	},
	{
		Key: "sorumlu", Title: "Sorumlular", Singular: "Sorumlu", Module: rbac.ModuleResponsible,
		API: "/sorumlu", Paged: true, Routes: entityRoutes("/sorumlu"),
		Fields: []Field{
			{Name: "ad", Label: "Ad", Kind: KindText, Rules: "required,max=100", Column: true},
			{Name: "soyad", Label: "Soyad", Kind: KindText, Rules: "required,max=100", Column: true},
			{Name: "email", Label: "Email", Kind: KindEmail, Rules: "omitempty,email", Column: true},
			{Name: "telefon", Label: "Telefon", Kind: KindPhone, Rules: "max=20", Column: true},
			{Name: "unvanlar", Label: "Ünvanlar", Kind: KindStrings, Options: titles, Column: true},
			{Name: "roleName", Label: "Rol", Kind: KindReadOnly},
		},
	},
	{
		Key: "kategori", Title: "Kategoriler", Singular: "Kategori", Module: rbac.ModuleCategory,
		API: "/kategori", Paged: true, Routes: entityRoutes("/kategori"),
		Fields: []Field{
			{Name: "ad", Label: "Ad", Kind: KindText, Rules: "required,max=100", Column: true},
			{Name: "aciklama", Label: "Açıklama", Kind: KindTextarea, Rules: "max=1000", Column: true},
			{Name: "ustKategoriId", Label: "Üst Kategori", Kind: KindRef, Ref: "kategori", From: "ustKategoriAd", Column: true},
		},
	},
	{
		Key: "paydas", Title: "Paydaşlar", Singular: "Paydaş", Module: rbac.ModuleStakeholder,
		API: "/paydas", Paged: true, Routes: entityRoutes("/paydas"),
		Fields: []Field{
			{Name: "ad", Label: "Ad", Kind: KindText, Rules: "required,max=200", Column: true},
			{Name: "tip", Label: "Tip", Kind: KindSelect, Options: stakeholderTypes, Column: true},
			{Name: "email", Label: "Email", Kind: KindEmail, Rules: "omitempty,email", Column: true},
			{Name: "telefon", Label: "Telefon", Kind: KindPhone, Rules: "max=20", Column: true},
			{Name: "adres", Label: "Adres", Kind: KindTextarea, Rules: "max=500"},
			{Name: "egitimler", Label: "Eğitimler", Kind: KindReadOnly},
			{Name: "projeler", Label: "Projeler", Kind: KindReadOnly},
		},
	},
	{
		Key: "proje", Title: "Projeler", Singular: "Proje", Module: rbac.ModuleProject,
		API: "/proje", Paged: true, Routes: entityRoutes("/proje"),
		Fields: []Field{
			{Name: "isim", Label: "Proje Adı", Kind: KindText, Rules: "required,max=200", Column: true},
			{Name: "baslangicTarihi", Label: "Başlangıç", Kind: KindDate, Column: true},
			{Name: "tarih", Label: "Bitiş/Tarih", Kind: KindDate, Column: true},
			{Name: "projeHakkinda", Label: "Proje Hakkında", Kind: KindTextarea, Rules: "max=2000"},
			{Name: "egitimSorumluId", Label: "Eğitim Sorumlusu", Kind: KindRef, Ref: "sorumlu", From: "egitimSorumlu"},
			{Name: "paydasId", Label: "Paydaş", Kind: KindRef, Ref: "paydas", From: "paydas", Column: true},
			{Name: "faaliyetler", Label: "Faaliyetler", Kind: KindReadOnly},
		},
	},
	{
		Key: "faaliyet", Title: "Faaliyetler", Singular: "Faaliyet", Module: rbac.ModuleActivity,
		API: "/faaliyet", Routes: entityRoutes("/faaliyet"),
		Fields: []Field{
			{Name: "tarih", Label: "Tarih", Kind: KindDate, Rules: "required", Column: true},
			{Name: "isim", Label: "İsim", Kind: KindText, Rules: "required,max=200", Column: true},
			{Name: "turu", Label: "Türü", Kind: KindText, Rules: "max=100", Column: true},
			{Name: "projeId", Label: "Proje", Kind: KindRef, Ref: "proje", From: "proje", Column: true},
			{Name: "sorumluIds", Label: "Sorumlular", Kind: KindRefs, Ref: "sorumlu", From: "sorumlular", Column: true},
		},
	},
	{
		Key: "payments", Title: "Ödemeler", Singular: "Ödeme", Module: rbac.ModulePayment,
		API: "/odeme", DefaultSort: "id,desc",
		Routes: Routes{
			List:   "/payments",
			New:    "/payments/create",
			Edit:   "/payments/{id}/edit",
			Detail: "/payments/{id}/view",
			Delete: "/payments/{id}/delete",
		},
		Fields: []Field{
			{Name: "egitimId", Label: "Eğitim", Kind: KindRef, Ref: "egitim", From: "egitim", Rules: "required", Column: true},
			{Name: "birimUcret", Label: "Birim Ücret", Kind: KindMoney, Rules: "required,min=0.01", Column: true},
			{Name: "miktar", Label: "Miktar", Kind: KindInt, Rules: "omitempty,min=1", Default: "1"},
			{Name: "toplamUcret", Label: "Toplam Ücret", Kind: KindMoney, Rules: "required,min=0.01", Column: true},
			{Name: "odemeKaynagi", Label: "Ödeme Kaynağı", Kind: KindSelect, Options: paymentSources, Rules: "required", Column: true},
			{Name: "sorumluId", Label: "Sorumlu", Kind: KindRef, Ref: "sorumlu", From: "sorumlu", Column: true},
			{Name: "durum", Label: "Durum", Kind: KindSelect, Options: paymentStatuses, Rules: "required", Default: "Bekliyor", Column: true, Badge: true},
			{Name: "operasyon", Label: "Operasyon", Kind: KindSelect, Options: paymentChannels, Column: true},
			{Name: "createdAt", Label: "Oluşturulma", Kind: KindReadOnly},
			{Name: "updatedAt", Label: "Güncellenme", Kind: KindReadOnly},
		},
		Filters: []Filter{
			{Name: "egitimId", Label: "Eğitim", Ref: "egitim"},
			{Name: "durum", Label: "Durum", Options: paymentStatuses},
			{Name: "odemeKaynagi", Label: "Ödeme Kaynağı", Options: paymentSources},
			{Name: "sorumluId", Label: "Sorumlu", Ref: "sorumlu"},
		},
	},
}

var catalogIndex = func() map[string]*Resource {
	idx := make(map[string]*Resource, len(Catalog))
	for _, res := range Catalog {
		idx[res.Key] = res
	}
	return idx
}()

// Lookup returns the resource registered under key.
func Lookup(key string) (*Resource, bool) {
	res, ok := catalogIndex[key]
	return res, ok
}
