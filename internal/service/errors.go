package service

import "bulkbuy-api/internal/core/apperr"

// 认证
var (
	ErrUserExists         = apperr.Duplicate("USER_EXISTS", "User already exists with this email")
	ErrUserNotFound       = apperr.NotFound("USER_NOT_FOUND", "User not found")
	ErrResetUserNotFound  = apperr.NotFound("RESET_USER_NOT_FOUND", "User not found with this email")
	ErrAlreadyVerified    = apperr.BadRequest("ALREADY_VERIFIED", "Email is already verified")
	ErrInvalidOTP         = apperr.BadRequest("INVALID_OTP", "Invalid or expired OTP")
	ErrInvalidCredentials = apperr.Unauthorized("INVALID_CREDENTIALS", "Invalid email or password")
	ErrAccountDeactivated = apperr.Unauthorized("ACCOUNT_DEACTIVATED", "Account is deactivated")
	ErrEmailNotVerified   = apperr.Unauthorized("EMAIL_NOT_VERIFIED", "Please verify your email before logging in")
	ErrVerifyEmailFirst   = apperr.BadRequest("VERIFY_EMAIL_FIRST", "Please verify your email first")
	ErrVerificationMail   = apperr.New(apperr.KindInternal, "VERIFICATION_MAIL_FAILED", "Failed to send verification email. Please try again.")
	ErrResetMail          = apperr.New(apperr.KindInternal, "RESET_MAIL_FAILED", "Failed to send password reset email. Please try again.")
)

// 商品
var (
	ErrProductNotFound      = apperr.NotFound("PRODUCT_NOT_FOUND", "Product not found")
	ErrNotProductOwner      = apperr.Forbidden("NOT_PRODUCT_OWNER", "Not authorized to update this product")
	ErrNotProductOwnerDel   = apperr.Forbidden("NOT_PRODUCT_OWNER_DELETE", "Not authorized to delete this product")
	ErrPurchaseDateNotAhead = apperr.BadRequest("PURCHASE_DATE_PAST", "Estimated purchase date must be in the future")
	ErrQuantityRange        = apperr.BadRequest("QUANTITY_RANGE", "Minimum quantity cannot be greater than maximum quantity")
)

// 评论
var (
	ErrCommentNotFound     = apperr.NotFound("COMMENT_NOT_FOUND", "Comment not found")
	ErrParentNotFound      = apperr.NotFound("PARENT_NOT_FOUND", "Parent comment not found")
	ErrParentOtherProduct  = apperr.BadRequest("PARENT_OTHER_PRODUCT", "Parent comment does not belong to this product")
	ErrNotCommentAuthor    = apperr.Forbidden("NOT_COMMENT_AUTHOR", "Not authorized to update this comment")
	ErrNotCommentAuthorDel = apperr.Forbidden("NOT_COMMENT_AUTHOR_DELETE", "Not authorized to delete this comment")
)

// 用户
var (
	ErrEmailInUse = apperr.Duplicate("EMAIL_IN_USE", "Email already in use")
)
