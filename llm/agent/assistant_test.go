package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyConversational(t *testing.T) {
	tests := []struct {
		query string
		want  ConversationalKind
	}{
		{"Hello", KindGreeting},
		{"  hi  ", KindGreeting},
		{"hi there", KindGreeting},
		{"Hey, what do you do?", KindGreeting},
		{"Good morning", KindGreeting},
		// 单词边界：history 不是问候
		{"history", KindNone},
		{"highlights of your ERP", KindNone},
		{"Who are you?", KindIdentity},
		{"are you a bot", KindIdentity},
		{"How are you today", KindWellbeing},
		{"thanks", KindThanks},
		{"Thank you", KindThanks},
		{"thanks for the pricing details", KindNone},
		{"What services do you offer?", KindNone},
		{"", KindNone},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyConversational(tt.query))
		})
	}
}

// 问候必须是完整单词：拉长的 "hellooo"、"heyy" 不算问候，
// 以免 "history"、"highlights" 这类提问被误判
func TestClassifyGreetingRequiresWordBoundary(t *testing.T) {
	for _, q := range []string{"hellooo", "heyy", "hiya", "history of the company"} {
		assert.Equal(t, KindNone, ClassifyConversational(q), q)
	}
	for _, q := range []string{"hello!", "hey.", "hi, who builds ERP?", "hello 123"} {
		assert.Equal(t, KindGreeting, ClassifyConversational(q), q)
	}
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, LanguageEnglish, DetectLanguage("What services do you offer?"))
	assert.Equal(t, LanguageBangla, DetectLanguage("আপনারা কী সেবা দেন?"))
	assert.Equal(t, LanguageBangla, DetectLanguage("ERP সফটওয়্যার"))
	assert.Equal(t, LanguageEnglish, DetectLanguage(""))
}

func TestDefaultReplies(t *testing.T) {
	r := DefaultReplies("")

	assert.Contains(t, r.Greeting, "I'm the Mysoft Heaven AI Assistant")
	assert.Contains(t, r.Greeting, "Mysoft Heaven (BD) Ltd.'s services")
	assert.Contains(t, r.Identity, DefaultCompanyName)
	assert.Equal(t, "I'm sorry, I don't have information about that in my knowledge base. "+
		"I can only provide answers about Mysoft Heaven (BD) Ltd.'s services, products, projects, and company information.",
		r.NoContext)

	assert.Equal(t, r.Thanks, r.For(KindThanks))
	assert.Equal(t, r.Wellbeing, r.For(KindWellbeing))
	assert.Equal(t, "", r.For(KindNone))
}

func TestShortName(t *testing.T) {
	assert.Equal(t, "Mysoft Heaven", shortName("Mysoft Heaven (BD) Ltd."))
	assert.Equal(t, "Acme", shortName("Acme Ltd."))
	assert.Equal(t, "Acme Corp", shortName("Acme Corp"))
}
