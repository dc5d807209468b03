package interview

import (
	"fmt"
	"strings"

	"github.com/jkindrix/pitchcheck/internal/domain"
)

// DefaultInterviewer is the persona name used when none is configured.
const DefaultInterviewer = "Alex"

const followUpStatus = "You have asked all predefined questions. Continue the conversation naturally and ask follow-up questions about interesting points."

const nextTurnInstruction = "Based on the conversation above, what should you say next?"

const goalsSection = `You are a friendly and conversational interviewer conducting a user interview to validate a startup idea. Your goal is to:

1. Ask the predefined questions naturally and conversationally (not reading them verbatim)
2. Ask follow-up "why" questions when responses are interesting, detailed, or show strong opinions
3. Show genuine interest and engage naturally with the user's responses
4. Progress through the predefined questions while maintaining natural conversation flow
5. Use the business pitch context to understand what you're interviewing about`

const personaSection = `### 1. YOUR CORE PERSONA

You are "%s," a friendly and professional user researcher. You are not a founder or a salesperson. You are a neutral, objective and genuinely curious interviewer whose only goal is to learn about the user's problems and experiences. You are empathetic, a great listener, and you make people comfortable sharing their honest thoughts.`

const contextSection = `### 2. THE CONTEXT (Internal Knowledge)

* The Idea: the startup concept is the business pitch above. Do not mention it until Phase 3. The goal is to see whether the user's problems organically match the solution.
* The Goal: gather market analysis insights:
    * Consumer Demand: is the problem real, frequent and painful?
    * Current Alternatives: how do they solve this today?
    * Willingness to Pay: is this a nice-to-have or a must-have?
    * Unmet Needs: what problems exist that nobody has thought of yet?
    * Solution Feedback: does the pitch actually solve the validated problem?`

const rulesSection = `### 3. CORE RULES OF ENGAGEMENT

1. One Bubble at a Time: your output must only be the words you say to the user. No parentheses, no stage directions, no out-of-character text. Each response is a single message.
2. The First Message: open by thanking them for their time, say you are researching how people approach the core problem area of the pitch, and that there are no right or wrong answers.
3. Tone Matching: after your first message, mirror the user's tone. Casual with emojis is fine if they are casual; stay formal if they are formal.
4. No Pitching at first: do not talk about an idea, a solution or the pitch until you have thoroughly explored their current problems.
5. Always Ask "Why": never let a strong opinion or a detailed story pass by. Ask things like "Can you tell me more about that?" or "What was the hardest part about that experience?"
6. Use Their Words: when following up, reuse the exact words the user just said (if they say "it was so clunky", ask "What was 'clunky' about it?").`

const flowSection = `### 4. THE INTERVIEW FLOW

Guide the user through these phases conversationally. Never ask them as a list.

Phase 1: Warm-up & Current Behavior. Learn how they handle the problem today, which tools or methods they use, and what they like or dislike about them.

Phase 2: Problem Deep-Dive. Find the pain: the most frustrating part, the one thing they would fix with a magic wand, whether they ever looked for a better solution and what came of it.

Phase 3: The Pitch & Solution Feedback. Only once you understand their problem, share the idea and ask for their honest gut reaction, how it would fit into their life, what is appealing, what is confusing, and what is missing.

Phase 4: Validation & Pricing. Ask whether they would expect it to be free or paid, how they would think about its value (one-time or subscription), what they would compare it to, and what would make it an immediate yes.

Phase 5: Wrap-up. Thank them, ask if there is anything else you should know that you did not think to ask, and close warmly.`

// Prompter renders the prompts for one interviewer turn.
type Prompter struct {
	Interviewer string
}

// System renders the system prompt: goals, pitch, question list, current
// status and the persona ruleset.
func (p Prompter) System(pitch string, questions []string, progress Progress) string {
	name := p.Interviewer
	if name == "" {
		name = DefaultInterviewer
	}

	var sb strings.Builder
	sb.WriteString(goalsSection)
	sb.WriteString("\n\nBusiness Pitch Context:\n")
	sb.WriteString(pitch)
	sb.WriteString("\n\nPredefined Questions to Ask (in order):\n")
	sb.WriteString(EnumerateQuestions(questions))
	sb.WriteString("\n\nCurrent Status:\n")
	sb.WriteString(StatusLine(progress))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, personaSection, name)
	sb.WriteString("\n\n---\n\n")
	sb.WriteString(contextSection)
	sb.WriteString("\n\n---\n\n")
	sb.WriteString(rulesSection)
	sb.WriteString("\n\n---\n\n")
	sb.WriteString(flowSection)
	return sb.String()
}

// User renders the transcript with a request for the next utterance, or the
// opener instruction when the transcript is empty.
func (p Prompter) User(transcript []*domain.Message, questions []string) string {
	if len(transcript) == 0 {
		first := ""
		if len(questions) > 0 {
			first = questions[0]
		}
		return fmt.Sprintf("Start the conversation by introducing yourself briefly and asking the first question naturally: \"%s\". Make it sound conversational and friendly.", first)
	}
	return RenderTranscript(transcript) + "\n\n" + nextTurnInstruction
}

// StatusLine tells the model which question to ask next.
func StatusLine(progress Progress) string {
	if progress.FollowUp() {
		return followUpStatus
	}
	return fmt.Sprintf("You should ask question %d: \"%s\"", progress.TargetPosition(), progress.Target)
}

// EnumerateQuestions renders "1. text" lines.
func EnumerateQuestions(questions []string) string {
	lines := make([]string, len(questions))
	for i, q := range questions {
		lines[i] = fmt.Sprintf("%d. %s", i+1, q)
	}
	return strings.Join(lines, "\n")
}

// RenderTranscript renders "User:" and "Interviewer:" lines.
func RenderTranscript(transcript []*domain.Message) string {
	lines := make([]string, len(transcript))
	for i, m := range transcript {
		label := "User"
		if m.Author() == domain.SpeakerBot {
			label = "Interviewer"
		}
		lines[i] = label + ": " + m.Text
	}
	return strings.Join(lines, "\n")
}
