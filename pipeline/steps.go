package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"echopost/config"
	"echopost/mediastore"
	"echopost/oracle"
)

const filterSystemPrompt = "You are a filter system for identifying content not suitable for posting. " +
	"If the content is promotional, respond with 'Yes, Promotional: [brief explanation]'. Otherwise, respond with 'No'."

const filterPromptTemplate = "Is the following content PURELY promotional without valuable information? " +
	"Note that content with BOTH promotional elements (like platform links) AND valuable market analysis " +
	"should be classified as NOT promotional.\n" +
	"If the content is purely promotional with no value, respond with 'Yes, Promotional: [explanation]'.\n" +
	"If the content contains valuable information (even with some promotional elements), respond with 'No'.\n" +
	"The presence of links alone is NOT enough to classify as promotional. " +
	"When in doubt, if there's ANY valuable analysis, classify as NOT promotional.\n\n" +
	"Content: %s"

const generationSystemPrompt = "You are a channel editor creating concise, engaging posts. Be cool and not overly excited."

const generationPromptTemplate = "Rewrite the following content as an engaging post. " +
	"The text is from the Original Message section; helpful details can be found in the media and link analysis sections.\n\n" +
	"IMPORTANT RULES:\n" +
	"1. REMOVE all channel mentions and referral links\n" +
	"2. KEEP essential information about the subject\n" +
	"3. Translate to English if necessary\n" +
	"4. Add relevant emojis for engagement\n" +
	"5. Do not put quotation marks around the post text or mention technical aspects\n\n" +
	"Content: %s"

// Filter asks the model whether the aggregated content is unsuitable for
// posting. Returns true when the content must be skipped. Fails closed: any
// provider failure counts as "filter it out", and the failure is still
// recorded in the filter_model decision artifact.
func Filter(ctx context.Context, provider oracle.ChatProvider, content, auditDir string) bool {
	if provider == nil {
		return false
	}
	prompt := fmt.Sprintf(filterPromptTemplate, content)

	cctx, cancel := context.WithTimeout(ctx, config.FilterTimeout)
	defer cancel()

	answer, err := provider.Complete(cctx, filterSystemPrompt, prompt, config.FilterMaxTokens)
	if err != nil {
		log.Printf("❌ Filter call failed, skipping post: %v", err)
		saveStepDecision(auditDir, "filter_model", provider.ModelName(), content, filterSystemPrompt,
			config.FilterMaxTokens, fmt.Sprintf("ERROR: %v - yes (default)", err), fmt.Sprintf("ERROR: %v", err))
		return true
	}

	verdict, explanation := splitVerdict(answer)
	saveStepDecision(auditDir, "filter_model", provider.ModelName(), content, filterSystemPrompt,
		config.FilterMaxTokens, verdict, explanation)

	filtered := strings.HasPrefix(verdict, "y")
	if filtered {
		log.Printf("Content identified as promotional, skipping: %s", explanation)
	}
	return filtered
}

// Generate rewrites the aggregated content into post text and persists both
// the decision artifact and post_text.txt. An empty result is an error so the
// caller never posts a blank message.
func Generate(ctx context.Context, provider oracle.ChatProvider, content, dir string) (string, error) {
	if provider == nil {
		return "", fmt.Errorf("no chat provider configured for generation")
	}
	prompt := fmt.Sprintf(generationPromptTemplate, content)

	cctx, cancel := context.WithTimeout(ctx, config.GenerationTimeout)
	defer cancel()

	answer, err := provider.Complete(cctx, generationSystemPrompt, prompt, config.GenerationMaxTokens)
	if err != nil {
		saveStepDecision(dir, "post_generation", provider.ModelName(), content, generationSystemPrompt,
			config.GenerationMaxTokens, fmt.Sprintf("ERROR: %v", err), fmt.Sprintf("ERROR: %v", err))
		return "", fmt.Errorf("post generation failed: %w", err)
	}

	postText := strings.TrimSpace(answer)
	saveStepDecision(dir, "post_generation", provider.ModelName(), content, generationSystemPrompt,
		config.GenerationMaxTokens, postText, "")
	if postText == "" {
		return "", fmt.Errorf("post generation returned empty text")
	}

	if _, err := mediastore.SavePostText(dir, postText); err != nil {
		return "", err
	}
	return postText, nil
}

// splitVerdict separates a yes/no decision from its trailing explanation.
func splitVerdict(answer string) (verdict, explanation string) {
	answer = strings.TrimSpace(answer)
	verdict = strings.ToLower(answer)
	if idx := strings.IndexAny(answer, ",.\n"); idx > 0 {
		verdict = strings.ToLower(strings.TrimSpace(answer[:idx]))
		explanation = strings.TrimSpace(answer[idx+1:])
	}
	return verdict, explanation
}

func saveStepDecision(dir, step, model, content, system string, maxTokens int, output, explanation string) {
	_, err := mediastore.SaveDecision(dir, step,
		map[string]any{
			"content":        truncateText(content, 2000),
			"system_content": system,
		},
		model,
		map[string]any{
			"temperature": 0.0,
			"max_tokens":  maxTokens,
		},
		output, explanation)
	if err != nil {
		log.Printf("Warning: failed to save %s decision: %v", step, err)
	}
}
