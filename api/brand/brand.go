// Package brand holds the per-brand presentation and behavior settings
// served to the widget frontend.
package brand

// Startup is the first-screen copy shown before the conversation begins.
type Startup struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Services     []string `json:"services"`
	Achievements string   `json:"achievements"`
	CallToAction string   `json:"callToAction"`
}

// Brand is one tenant's configuration.
type Brand struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Title          string   `json:"title"`
	Theme          string   `json:"theme"`
	RequireAuth    bool     `json:"requireAuth"`
	SystemPrompt   string   `json:"-"`
	Startup        Startup  `json:"startup"`
	HeaderTitle    string   `json:"headerTitle"`
	QuickQuestions []string `json:"quickQuestions"`
	WelcomeMessage string   `json:"welcomeMessage"`
	Placeholder    string   `json:"placeholder"`
}

// DefaultID is used when a request names no brand or an unknown one.
const DefaultID = "creative_tech"

// Registry resolves brand ids to configurations.
type Registry struct {
	brands map[string]Brand
	order  []string
}

// NewRegistry returns the built-in brand set.
func NewRegistry() *Registry {
	r := &Registry{brands: make(map[string]Brand)}
	for _, b := range builtin {
		r.brands[b.ID] = b
		r.order = append(r.order, b.ID)
	}
	return r
}

// Get resolves a brand id, falling back to the default for unknown ids.
func (r *Registry) Get(id string) Brand {
	if b, ok := r.brands[id]; ok {
		return b
	}
	return r.brands[DefaultID]
}

// Known reports whether id names a registered brand.
func (r *Registry) Known(id string) bool {
	_, ok := r.brands[id]
	return ok
}

// List returns every brand in registration order.
func (r *Registry) List() []Brand {
	out := make([]Brand, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.brands[id])
	}
	return out
}

var builtin = []Brand{
	{
		ID:          "creative_tech",
		Name:        "創造智能科技",
		Title:       "創造智能科技 - AI虛擬助理",
		Theme:       "blue",
		RequireAuth: false,
		SystemPrompt: "你是創造智能科技股份有限公司的AI助理，專精於MarTech行銷科技解決方案。" +
			"公司主力產品包括CDP顧客數據平台、AI虛擬人技術、智能客服chatbot、AIGC內容創作與社群代操服務。" +
			"請用繁體中文、親切專業的語氣回答，並在合適時介紹公司服務。",
		Startup: Startup{
			Title:       "歡迎使用創造智能科技AI助理",
			Description: "歡迎來到創造智能科技股份有限公司！我們是台灣領先的MarTech行銷科技公司，專注於AI+行銷整合解決方案。",
			Services: []string{
				"CDP顧客數據平台 - 整合多管道數據，AI智能分析",
				"AI虛擬人技術 - 2D/3D客製虛擬人，用於客服代言",
				"智能客服chatbot - 24/7全天候智能客服解決方案",
				"AIGC內容創作 - 端到端影音工作流，腳本到成品",
				"社群代操服務 - YouTube、FB、IG專業內容經營",
			},
			Achievements: "🏆 榮獲2023年YouTube創新應用獎、2024年LINE最佳行銷獎",
			CallToAction: "點選「開始體驗」立即與我們的AI助理互動，探索MarTech的無限可能！",
		},
		HeaderTitle: "創造智能科技 AI助理",
		QuickQuestions: []string{
			"AI虛擬人可以為我的品牌做什麼？",
			"AITAGO平台如何幫助我做LINE行銷？",
			"AIGC內容創作可以製作什麼影片？",
		},
		WelcomeMessage: "您好！我是創造智能科技的AI助理，專精於MarTech行銷科技解決方案，請選擇對話模式並開始探索AI的無限可能！",
		Placeholder:    "請輸入您的問題...",
	},
	{
		ID:          "probiotics",
		Name:        "小益",
		Title:       "小益 - 益生菌健康顧問",
		Theme:       "green",
		RequireAuth: true,
		SystemPrompt: "你是小益，一位專業的益生菌健康顧問。" +
			"產品線包括活力系列（學生族群）、職場系列（上班族）、樂活系列（銀髮族）與綜合調理包。" +
			"請用繁體中文、溫暖關懷的語氣，根據用戶的生活習慣推薦合適的產品，並說明會員權益。",
		Startup: Startup{
			Title:       "歡迎使用小益益生菌助理",
			Description: "您好！我是小益，您的專屬益生菌健康顧問。專注於腸道健康與免疫力調節，為不同族群提供個人化的益生菌建議。",
			Services: []string{
				"活力系列 - 適合學生族群，支持消化健康，提升學習專注力",
				"職場系列 - 適合上班族，調節腸道機能，舒緩工作壓力",
				"樂活系列 - 適合銀髮族，溫和調理，支持整體健康",
				"綜合調理包 - 結合三大系列精華，適用全家人共同保健",
				"會員專屬服務 - 健康諮詢、定期配送、生日優惠",
			},
			Achievements: "🌿 天然健康，科學配方，專業營養師推薦",
			CallToAction: "點選「開始諮詢」立即獲得專屬的益生菌健康建議！",
		},
		HeaderTitle: "小益 益生菌健康顧問",
		QuickQuestions: []string{
			"根據我的生活習慣推薦益生菌",
			"不同產品有什麼差異？",
			"加入會員有什麼好處？",
		},
		WelcomeMessage: "您好！我是小益，您的專屬益生菌健康顧問。我可以根據您的生活習慣推薦最適合的益生菌產品，並協助您了解產品差異和會員權益。請告訴我您的需求！",
		Placeholder:    "請告訴我您的健康需求...",
	},
}
