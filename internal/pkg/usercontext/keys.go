package usercontext

// Shared Locals key used across controllers and middlewares
const KeyOperatorContext = "OPERATOR_CONTEXT"
