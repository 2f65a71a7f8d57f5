package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrEmailTaken         ErrCode = "EMAIL_ALREADY_REGISTERED"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Question bank ─────────────────────────────────────────────────
	ErrBankUnavailable ErrCode = "BANK_UNAVAILABLE"
	ErrNoQuestions     ErrCode = "NO_QUESTIONS"

	// ─── Practice ──────────────────────────────────────────────────────
	ErrEmptyAnswer      ErrCode = "EMPTY_ANSWER"
	ErrAlreadyAnswered  ErrCode = "ALREADY_ANSWERED"
	ErrIndexOutOfRange  ErrCode = "INDEX_OUT_OF_RANGE"
	ErrSessionNotActive ErrCode = "SESSION_NOT_ACTIVE"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrInsufficientBank     ErrCode = "INSUFFICIENT_BANK"
	ErrExamAlreadySubmitted ErrCode = "EXAM_ALREADY_SUBMITTED"
	ErrConfirmationRequired ErrCode = "CONFIRMATION_REQUIRED"
	ErrSectionGatePending   ErrCode = "SECTION_GATE_PENDING"
	ErrNoSectionGate        ErrCode = "NO_SECTION_GATE"
	ErrNoActiveExam         ErrCode = "NO_ACTIVE_EXAM"

	// ─── Mistake notebook ──────────────────────────────────────────────
	ErrReplayFinished ErrCode = "REPLAY_FINISHED"
	ErrNoActiveReplay ErrCode = "NO_ACTIVE_REPLAY"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "邮箱或密码错误。"
	case ErrEmailTaken:
		return "该邮箱已注册。"
	case ErrSessionInvalidated:
		return "登录已失效，请重新登录。"
	case ErrTokenRequired:
		return "需要登录凭证。"
	case ErrTokenInvalid:
		return "登录凭证无效。"
	case ErrTokenExpired:
		return "登录凭证已过期。"

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "参数校验失败，请检查输入。"
	case ErrInvalidID:
		return "ID 格式无效。"
	case ErrInvalidPayload:
		return "请求内容无效。"

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "资源不存在。"

	// ─── Question bank ─────────────────────────────────────────────────
	case ErrBankUnavailable:
		return "题库加载失败，请稍后重试。"
	case ErrNoQuestions:
		return "该分类下暂无题目。"

	// ─── Practice ──────────────────────────────────────────────────────
	case ErrEmptyAnswer:
		return "请先作答再提交。"
	case ErrAlreadyAnswered:
		return "本题已提交，请查看解析或进入下一题。"
	case ErrIndexOutOfRange:
		return "题号超出范围。"
	case ErrSessionNotActive:
		return "练习尚未开始。"

	// ─── Exam-specific ─────────────────────────────────────────────────
	case ErrInsufficientBank:
		return "题库题量不足，无法生成试卷。"
	case ErrExamAlreadySubmitted:
		return "考试已交卷。"
	case ErrConfirmationRequired:
		return "确认交卷吗？未作答的题目将计为零分。"
	case ErrSectionGatePending:
		return "请先阅读本部分说明。"
	case ErrNoSectionGate:
		return "当前没有需要确认的说明。"
	case ErrNoActiveExam:
		return "当前没有进行中的考试。"

	// ─── Mistake notebook ──────────────────────────────────────────────
	case ErrReplayFinished:
		return "错题强化已完成。"
	case ErrNoActiveReplay:
		return "当前没有进行中的错题强化。"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "请求过于频繁，请稍后再试。"

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "服务器内部错误。"
	default:
		return "发生未知错误。"
	}
}
