// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"strings"
	"unicode"
)

// =============================================================================
// AGENT PROFILES
// =============================================================================

// AgentProfile describes one tenant: the server-side agent it talks to, how
// its local state is namespaced, and how it presents itself.
type AgentProfile struct {
	// ID selects the profile on the command line and in default_agent.
	ID string `toml:"id" json:"id"`
	// AgentName is sent to the server verbatim.
	AgentName     string `toml:"agent_name" json:"agent_name"`
	DisplayName   string `toml:"display_name" json:"display_name"`
	StoragePrefix string `toml:"storage_prefix" json:"storage_prefix"`
	BaseURL       string `toml:"base_url,omitempty" json:"base_url,omitempty"`

	HeaderTitle      string `toml:"header_title" json:"header_title"`
	HeaderSubtitle   string `toml:"header_subtitle" json:"header_subtitle"`
	WelcomeIcon      string `toml:"welcome_icon" json:"welcome_icon"`
	WelcomeTitle     string `toml:"welcome_title" json:"welcome_title"`
	WelcomeMessage   string `toml:"welcome_message" json:"welcome_message"`
	InputPlaceholder string `toml:"input_placeholder" json:"input_placeholder"`

	QuickQuestions []QuickQuestion `toml:"quick_questions" json:"quick_questions"`

	// ThinkingSteps are canned phrase sets for the thinking fallback.
	ThinkingSteps [][]string `toml:"thinking_steps" json:"thinking_steps"`

	Features Features `toml:"features" json:"features"`
}

// QuickQuestion is a suggested first message.
type QuickQuestion struct {
	Icon     string `toml:"icon" json:"icon"`
	Text     string `toml:"text" json:"text"`
	Question string `toml:"question" json:"question"`
}

// Features toggles optional capabilities per profile.
type Features struct {
	HasKnowledgeBase bool `toml:"has_knowledge_base" json:"has_knowledge_base"`
	KBToggleable     bool `toml:"kb_toggleable" json:"kb_toggleable"`
	HasLogoUpload    bool `toml:"has_logo_upload" json:"has_logo_upload"`
	HasFileUpload    bool `toml:"has_file_upload" json:"has_file_upload"`
	HasChatHistory   bool `toml:"has_chat_history" json:"has_chat_history"`
}

// Clone returns a deep copy.
func (p AgentProfile) Clone() AgentProfile {
	out := p
	if p.QuickQuestions != nil {
		out.QuickQuestions = append([]QuickQuestion(nil), p.QuickQuestions...)
	}
	if p.ThinkingSteps != nil {
		out.ThinkingSteps = make([][]string, len(p.ThinkingSteps))
		for i, set := range p.ThinkingSteps {
			out.ThinkingSteps[i] = append([]string(nil), set...)
		}
	}
	return out
}

// Matches reports whether name selects this profile, by id or agent name.
func (p AgentProfile) Matches(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	return strings.EqualFold(p.ID, name) || strings.EqualFold(p.AgentName, name)
}

// Profile finds a profile by id or agent name. The returned profile is a copy.
func (c *Config) Profile(name string) (AgentProfile, bool) {
	for _, p := range c.Agents {
		if p.Matches(name) {
			return p.Clone(), true
		}
	}
	return AgentProfile{}, false
}

// ActiveProfile returns the profile named by default_agent, falling back to
// the first profile.
func (c *Config) ActiveProfile() AgentProfile {
	if p, ok := c.Profile(c.DefaultAgent); ok {
		return p
	}
	if len(c.Agents) > 0 {
		return c.Agents[0].Clone()
	}
	return AgentProfile{}
}

// ProfileIDs lists the configured profile ids in file order.
func (c *Config) ProfileIDs() []string {
	ids := make([]string, 0, len(c.Agents))
	for _, p := range c.Agents {
		ids = append(ids, p.ID)
	}
	return ids
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_' || r == '.':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteByte('-')
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// =============================================================================
// BUILT-IN PROFILES
// =============================================================================

// BuiltinProfiles returns fresh copies of the shipped profiles.
func BuiltinProfiles() []AgentProfile {
	return []AgentProfile{freedaProfile(), aspectProfile()}
}

func freedaProfile() AgentProfile {
	return AgentProfile{
		ID:               "freeda",
		AgentName:        "Freeda 2.0",
		DisplayName:      "Freeda.ai",
		StoragePrefix:    "freeda_",
		HeaderTitle:      "Freeda",
		HeaderSubtitle:   "Your supportive menopause companion",
		WelcomeIcon:      "🌸",
		WelcomeTitle:     "Welcome to Freeda",
		WelcomeMessage:   "I'm here to support you through your menopause journey with understanding, knowledge, and care.",
		InputPlaceholder: "Ask me anything about menopause, wellness, or self-care...",
		QuickQuestions: []QuickQuestion{
			{Icon: "🌡️", Text: "Common Symptoms", Question: "What are the common symptoms of menopause?"},
			{Icon: "💨", Text: "Hot Flash Relief", Question: "How can I manage hot flashes?"},
			{Icon: "🥗", Text: "Nutrition Tips", Question: "What foods should I eat during menopause?"},
			{Icon: "😴", Text: "Better Sleep", Question: "How can I improve my sleep?"},
			{Icon: "🧘", Text: "Stress Relief", Question: "What are some stress management techniques?"},
			{Icon: "💪", Text: "Exercise Tips", Question: "What exercises are best during menopause?"},
			{Icon: "🧠", Text: "Brain Fog", Question: "How can I deal with brain fog and memory issues?"},
			{Icon: "💊", Text: "Treatment Options", Question: "What treatment options are available for menopause symptoms?"},
			{Icon: "❤️", Text: "Heart Health", Question: "How does menopause affect heart health?"},
			{Icon: "🦴", Text: "Bone Health", Question: "How can I maintain bone health during menopause?"},
			{Icon: "😊", Text: "Mood Changes", Question: "How can I manage mood swings?"},
			{Icon: "🌙", Text: "Night Sweats", Question: "How can I reduce night sweats?"},
		},
		ThinkingSteps: [][]string{
			{
				"Understanding your question with care",
				"Accessing trusted medical knowledge",
				"Considering your unique needs",
				"Preparing personalized guidance",
				"Ensuring accuracy and empathy",
			},
			{
				"Analyzing symptom patterns",
				"Reviewing wellness research",
				"Connecting to practical solutions",
				"Crafting supportive advice",
			},
			{
				"Processing your health query",
				"Consulting evidence-based resources",
				"Tailoring recommendations for you",
				"Preparing helpful insights",
			},
			{
				"Evaluating your wellness question",
				"Gathering menopause expertise",
				"Formulating compassionate guidance",
				"Ensuring clarity and support",
			},
		},
		Features: Features{
			HasKnowledgeBase: true,
			KBToggleable:     true,
			HasFileUpload:    true,
			HasChatHistory:   true,
		},
	}
}

func aspectProfile() AgentProfile {
	return AgentProfile{
		ID:               "aspect",
		AgentName:        "Aspect",
		DisplayName:      "Aspect Insight",
		StoragePrefix:    "aspect_",
		HeaderTitle:      "Aspect Insight",
		HeaderSubtitle:   "AI-powered business intelligence at your fingertips",
		WelcomeIcon:      "💼",
		WelcomeTitle:     "Welcome to your Aspect Assistant",
		WelcomeMessage:   "Ask me anything about your business metrics, sales data, inventory, and more.",
		InputPlaceholder: "Ask about sales, inventory, branches, customers...",
		QuickQuestions: []QuickQuestion{
			{Icon: "💰", Text: "Sales Overview", Question: "What are my total sales this month?"},
			{Icon: "📈", Text: "Top Products", Question: "Which product is selling the most?"},
			{Icon: "🏢", Text: "Branch Analysis", Question: "Show me branch performance"},
			{Icon: "📦", Text: "Inventory Check", Question: "Inventory status report"},
			{Icon: "⚠️", Text: "Inventory Issues", Question: "Show me inventory problems"},
			{Icon: "👥", Text: "Customer Churn Risk", Question: "Which customers are at risk of churning?"},
			{Icon: "🎁", Text: "Inventory → Promotions", Question: "Which items with problematic inventory can we offer as promotions to loyalty club members?"},
			{Icon: "🔔", Text: "Urgent Reorders", Question: "What products should I reorder urgently?"},
			{Icon: "📊", Text: "YoY Comparison", Question: "Compare this month to last year"},
			{Icon: "⭐", Text: "Top Customers", Question: "Who are my top customers?"},
			{Icon: "🚚", Text: "Transfer Recommendations", Question: "Which products should I move between branches?"},
			{Icon: "🐌", Text: "Slow Movers", Question: "Show me slow-moving inventory"},
		},
		ThinkingSteps: [][]string{
			{
				"Understanding your business question",
				"Accessing financial data",
				"Analyzing metrics and trends",
				"Preparing insights",
				"Ensuring accuracy",
			},
			{
				"Processing your query",
				"Consulting business intelligence",
				"Calculating key metrics",
				"Crafting your report",
			},
			{
				"Evaluating your request",
				"Gathering sales and inventory data",
				"Formulating recommendations",
				"Preparing actionable insights",
			},
			{
				"Analyzing business patterns",
				"Reviewing performance data",
				"Connecting to best practices",
				"Building your response",
			},
		},
		Features: Features{
			HasLogoUpload:  true,
			HasChatHistory: true,
		},
	}
}
