package agent

import (
	"fmt"
	"strings"
	"unicode"
)

// DefaultCompanyName is the organisation the assistant answers for
const DefaultCompanyName = "Mysoft Heaven (BD) Ltd."

// GroundedPrompt is the system instruction for retrieval-grounded replies.
// Placeholders: company, reply language, word limit, retrieved context.
const GroundedPrompt = `You are a helpful AI assistant for %[1]s.
You must answer questions strictly based on the provided context.

LANGUAGE
First detect the language of the user query and answer in that language.
You are also a Bangla language assistant: if the user asks in Bangla you must answer in Bangla, otherwise you must answer in English.
The current query is written in %[2]s.

RULES
- If the answer is not in the context, politely state that you don't know.
- Refuse to answer unrelated or out-of-scope questions.
- Answer in a concise and clear manner, under %[3]d words.
- Do not use external knowledge.

Context: %[4]s`

// Language of a user query
type Language string

const (
	LanguageEnglish Language = "English"
	LanguageBangla  Language = "Bangla"
)

// DetectLanguage returns Bangla when the query contains Bengali script
func DetectLanguage(query string) Language {
	for _, r := range query {
		if unicode.Is(unicode.Bengali, r) {
			return LanguageBangla
		}
	}
	return LanguageEnglish
}

// ConversationalKind classifies small-talk queries that bypass retrieval
type ConversationalKind string

const (
	KindNone      ConversationalKind = ""
	KindGreeting  ConversationalKind = "greeting"
	KindIdentity  ConversationalKind = "identity"
	KindWellbeing ConversationalKind = "wellbeing"
	KindThanks    ConversationalKind = "thanks"
)

var (
	greetings        = []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening"}
	identityPhrases  = []string{"who are you", "what are you", "are you a bot", "are you ai", "who r u", "what r u"}
	wellbeingPhrases = []string{"how are you", "how r u"}
	thanksPhrases    = []string{"thank you", "thanks", "thank u", "thx"}
)

// ClassifyConversational matches a query against the small-talk patterns.
// Greetings match exactly or as a leading word ("hi there" but not "history").
func ClassifyConversational(query string) ConversationalKind {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return KindNone
	}

	for _, g := range greetings {
		if q == g || hasWordPrefix(q, g) {
			return KindGreeting
		}
	}
	for _, p := range identityPhrases {
		if strings.Contains(q, p) {
			return KindIdentity
		}
	}
	for _, p := range wellbeingPhrases {
		if strings.Contains(q, p) {
			return KindWellbeing
		}
	}
	for _, p := range thanksPhrases {
		if q == p {
			return KindThanks
		}
	}
	return KindNone
}

// hasWordPrefix reports whether s starts with prefix followed by a non-letter
func hasWordPrefix(s, prefix string) bool {
	if !strings.HasPrefix(s, prefix) {
		return false
	}
	rest := s[len(prefix):]
	if rest == "" {
		return true
	}
	r := []rune(rest)[0]
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// Replies holds the fixed texts the assistant answers with outside the grounded path
type Replies struct {
	Greeting  string
	Identity  string
	Wellbeing string
	Thanks    string
	NoContext string
}

// DefaultReplies returns the canned replies for company
func DefaultReplies(company string) Replies {
	if company == "" {
		company = DefaultCompanyName
	}
	possessive := company + "'s"

	return Replies{
		Greeting: fmt.Sprintf("Hello! I'm the %s AI Assistant. I can help you with information about %s services, "+
			"products, government projects, and company details. What would you like to know?",
			shortName(company), possessive),
		Identity: fmt.Sprintf("I am an AI assistant specifically designed to help with questions about %s "+
			"I can provide information about their services, products, government projects, certifications, "+
			"and company background. How can I assist you today?", company),
		Wellbeing: fmt.Sprintf("I'm functioning well, thank you! I'm here to help you with any questions about %s "+
			"What would you like to know about our company?", company),
		Thanks: fmt.Sprintf("You're welcome! Feel free to ask if you have any other questions about %s", company),
		NoContext: fmt.Sprintf("I'm sorry, I don't have information about that in my knowledge base. "+
			"I can only provide answers about %s services, products, projects, and company information.", possessive),
	}
}

// For returns the canned reply for kind
func (r Replies) For(kind ConversationalKind) string {
	switch kind {
	case KindGreeting:
		return r.Greeting
	case KindIdentity:
		return r.Identity
	case KindWellbeing:
		return r.Wellbeing
	case KindThanks:
		return r.Thanks
	default:
		return ""
	}
}

// shortName drops a trailing parenthesised country code and legal suffix:
// "Mysoft Heaven (BD) Ltd." becomes "Mysoft Heaven".
func shortName(company string) string {
	if i := strings.Index(company, " ("); i > 0 {
		return company[:i]
	}
	return strings.TrimSuffix(strings.TrimSuffix(company, " Ltd."), " Ltd")
}
