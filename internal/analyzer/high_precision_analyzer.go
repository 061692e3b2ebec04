package analyzer

import (
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/sevigo/coderadar/internal/core"
	"github.com/sevigo/coderadar/internal/evidence"
)

// HighPrecisionAnalyzer is the curated, near-100%-precision family that
// drives PR review comments. Its category set is closed: secret_exposure,
// private_key_exposed, env_leaked, migration_destructive,
// auth_middleware_removed, dependency_changed. Every rule here is chosen
// for low false-positive rate over recall — it's better to miss an issue
// than to flood a PR with noise.
type HighPrecisionAnalyzer struct {
	secretPatterns []evidence.SecretPattern
}

// NewHighPrecisionAnalyzer builds the analyzer over the canonical secret
// pattern table shared with the evidence redactor, so a secret this
// analyzer flags is redacted by the exact same rule that produced the
// finding.
func NewHighPrecisionAnalyzer() *HighPrecisionAnalyzer {
	return &HighPrecisionAnalyzer{secretPatterns: evidence.Patterns()}
}

func (h *HighPrecisionAnalyzer) Name() string { return "high_precision" }

func (h *HighPrecisionAnalyzer) Analyze(_ context.Context, fc *FileContext) ([]core.FindingMatch, error) {
	var out []core.FindingMatch

	out = append(out, h.checkDangerousFile(fc)...)

	filename := path.Base(fc.FilePath)
	if isLockfile(filename) {
		out = append(out, core.FindingMatch{
			RuleID:            "dependency_lockfile_changed",
			Category:          string(core.CategoryDependencyChanged),
			Title:             "Dependency Lockfile Changed",
			Description:       "A dependency lockfile was modified.",
			Severity:          core.SeverityInfo,
			Confidence:        core.ConfidenceHigh,
			Remediation:       "Review the lockfile diff for unexpected dependency or version changes.",
			Tags:              []string{"dependencies"},
			FilePath:          fc.FilePath,
			StartLine:         1,
			EndLine:           1,
			RuleTriggerReason: "Dependency lockfile '" + filename + "' was modified - review for security implications and dependency updates",
			Snippet:           filename,
		})
	}

	if len(fc.Content) == 0 {
		return out, nil
	}
	content := string(fc.Content)

	out = append(out, h.checkSecretPatterns(fc, content)...)

	if isMigrationFile(fc.FilePath) {
		out = append(out, checkDestructiveMigrations(fc, content)...)
	}
	if isRouteFile(fc.FilePath) {
		out = append(out, checkAuthMiddlewareRemoval(fc, content)...)
	}

	return out, nil
}

var (
	envFilePattern = regexp.MustCompile(`^\.env(?:\.(?:local|production|staging))?$`)
	sshKeyPattern  = regexp.MustCompile(`id_rsa$|id_ed25519$|id_ecdsa$`)
)

// checkDangerousFile flags a file that should never be committed, based on
// its name alone — no content inspection needed.
func (h *HighPrecisionAnalyzer) checkDangerousFile(fc *FileContext) []core.FindingMatch {
	filename := path.Base(fc.FilePath)
	var out []core.FindingMatch
	switch {
	case envFilePattern.MatchString(filename):
		out = append(out, dangerousFileFinding(fc.FilePath, filename, "Environment file committed", core.CategoryEnvLeaked, "file_env_committed"))
	case sshKeyPattern.MatchString(filename):
		out = append(out, dangerousFileFinding(fc.FilePath, filename, "SSH private key committed", core.CategoryPrivateKeyExposed, "file_ssh_key_committed"))
	}
	return out
}

func dangerousFileFinding(filePath, filename, name string, category core.HighPrecisionCategory, ruleID string) core.FindingMatch {
	return core.FindingMatch{
		RuleID:            ruleID,
		Category:          string(category),
		Title:             name,
		Description:       name + " - this file should not be committed to version control.",
		Severity:          core.SeverityCritical,
		Confidence:        core.ConfidenceHigh,
		Remediation:       "Remove the file from version control and rotate any credentials it may contain.",
		Tags:              []string{"secrets"},
		FilePath:          filePath,
		StartLine:         1,
		EndLine:           1,
		RuleTriggerReason: name + " - this file should not be committed to version control",
		Snippet:           filename,
	}
}

var lockfiles = map[string]bool{
	"composer.lock":     true,
	"package-lock.json": true,
	"yarn.lock":         true,
	"pnpm-lock.yaml":    true,
	"Gemfile.lock":      true,
	"poetry.lock":       true,
}

func isLockfile(filename string) bool { return lockfiles[filename] }

func isMigrationFile(filePath string) bool {
	return strings.Contains(strings.ToLower(filePath), "migrations/") && strings.HasSuffix(filePath, ".php")
}

func isRouteFile(filePath string) bool {
	return strings.Contains(strings.ToLower(filePath), "routes/") && strings.HasSuffix(filePath, ".php")
}

// checkSecretPatterns runs the shared secret pattern table over content,
// classifying a PEM private-key header as private_key_exposed and every
// other match as secret_exposure.
func (h *HighPrecisionAnalyzer) checkSecretPatterns(fc *FileContext, content string) []core.FindingMatch {
	var out []core.FindingMatch
	for _, p := range h.secretPatterns {
		category := core.CategorySecretExposure
		severity := core.SeverityCritical
		if p.Name == "pem_private_key_header" {
			category = core.CategoryPrivateKeyExposed
		}
		if p.Name == "stripe_live_publishable_key" || p.Name == "twilio_account_sid" {
			severity = core.SeverityHigh
		}
		for _, loc := range p.Pattern.FindAllStringIndex(content, -1) {
			startLine := lineForOffset(content, loc[0])
			endLine := lineForOffset(content, loc[1])
			out = append(out, core.FindingMatch{
				RuleID:            "secret_" + p.Name,
				Category:          string(category),
				Title:             secretPatternTitle(p.Name),
				Description:       "A credential matching a known secret format was found in source.",
				Severity:          severity,
				Confidence:        core.ConfidenceHigh,
				Remediation:       "Remove the secret from source control and rotate it immediately.",
				Tags:              []string{"secrets"},
				FilePath:          fc.FilePath,
				StartLine:         startLine,
				EndLine:           endLine,
				RuleTriggerReason: secretPatternTitle(p.Name) + " detected",
				Snippet:           evidence.Redact(snippetForLines(content, startLine, endLine, 3)),
			})
		}
	}
	return out
}

func secretPatternTitle(name string) string {
	switch name {
	case "github_pat_classic":
		return "GitHub Personal Access Token"
	case "github_pat_finegrained":
		return "GitHub Fine-grained PAT"
	case "aws_access_key":
		return "AWS Access Key ID"
	case "stripe_live_secret_key":
		return "Stripe Live Secret Key"
	case "stripe_live_publishable_key":
		return "Stripe Live Publishable Key"
	case "slack_bot_token":
		return "Slack Bot Token"
	case "slack_user_token":
		return "Slack User Token"
	case "sendgrid_api_key":
		return "SendGrid API Key"
	case "twilio_account_sid":
		return "Twilio Account SID"
	case "pem_private_key_header":
		return "Private Key"
	default:
		return "Secret"
	}
}

// destructiveMigrationPatterns are Laravel schema-mutation calls that drop
// or rename data irreversibly.
var destructiveMigrationPatterns = []struct {
	ruleID  string
	title   string
	pattern *regexp.Regexp
}{
	{"migration_drop_table", "DROP TABLE", regexp.MustCompile(`(?i)Schema::drop(?:IfExists)?\s*\(\s*['"](\w+)['"]`)},
	{"migration_drop_column", "DROP COLUMN", regexp.MustCompile(`(?i)\$table->dropColumn\s*\(\s*['"](\w+)['"]`)},
	{"migration_drop_columns", "DROP COLUMNS", regexp.MustCompile(`(?i)\$table->dropColumn\s*\(\s*\[([^\]]+)\]`)},
	{"migration_rename_table", "RENAME TABLE", regexp.MustCompile(`(?i)Schema::rename\s*\(`)},
	{"migration_rename_column", "RENAME COLUMN", regexp.MustCompile(`(?i)\$table->renameColumn\s*\(`)},
}

func checkDestructiveMigrations(fc *FileContext, content string) []core.FindingMatch {
	var out []core.FindingMatch
	for _, p := range destructiveMigrationPatterns {
		for _, sub := range p.pattern.FindAllStringSubmatchIndex(content, -1) {
			startLine := lineForOffset(content, sub[0])
			endLine := lineForOffset(content, sub[1])

			var target string
			if len(sub) >= 4 && sub[2] >= 0 {
				target = content[sub[2]:sub[3]]
			}

			reason := p.title
			if target != "" {
				reason += " on '" + target + "'"
			}
			reason += " - this operation will cause data loss and cannot be easily undone"

			description := "This migration performs a destructive, hard-to-reverse schema change."
			if target != "" {
				description += " Target: " + target + "."
			}

			tags := []string{"migration", "destructive"}
			if target != "" {
				tags = append(tags, "target:"+target)
			}

			out = append(out, core.FindingMatch{
				RuleID:            p.ruleID,
				Category:          string(core.CategoryMigrationDestructive),
				Title:             p.title,
				Description:       description,
				Severity:          core.SeverityHigh,
				Confidence:        core.ConfidenceHigh,
				Remediation:       "Confirm a backward-compatible migration path exists and that a backup is taken first.",
				Tags:              tags,
				FilePath:          fc.FilePath,
				StartLine:         startLine,
				EndLine:           endLine,
				RuleTriggerReason: reason,
				Snippet:           snippetForLines(content, startLine, endLine, 3),
			})
		}
	}
	return out
}

var authMiddlewareRemovalPattern = regexp.MustCompile(`(?i)->withoutMiddleware\s*\(\s*['"](auth|verified|can|admin)['"]`)

func checkAuthMiddlewareRemoval(fc *FileContext, content string) []core.FindingMatch {
	var out []core.FindingMatch
	for _, loc := range authMiddlewareRemovalPattern.FindAllStringIndex(content, -1) {
		startLine := lineForOffset(content, loc[0])
		endLine := lineForOffset(content, loc[1])
		out = append(out, core.FindingMatch{
			RuleID:            "auth_middleware_removed",
			Category:          string(core.CategoryAuthMiddlewareRemoved),
			Title:             "Auth middleware removed from route",
			Description:       "A route explicitly opts out of an auth-related middleware.",
			Severity:          core.SeverityCritical,
			Confidence:        core.ConfidenceHigh,
			Remediation:       "Confirm this route is intentionally public; otherwise restore the middleware.",
			Tags:              []string{"auth", "routing"},
			FilePath:          fc.FilePath,
			StartLine:         startLine,
			EndLine:           endLine,
			RuleTriggerReason: "Route opts out of auth middleware",
			Snippet:           snippetForLines(content, startLine, endLine, 3),
		})
	}
	return out
}
