package nostd

import (
	"errors"
	"fmt"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zhtrans "github.com/go-playground/validator/v10/translations/zh"
)

// CustomValidator echo 请求参数校验器
type CustomValidator struct {
	Validator *validator.Validate
	trans     ut.Translator
}

// TransInit 初始化中文翻译
func (cv *CustomValidator) TransInit() error {
	zhLocale := zh.New()
	enLocale := en.New()
	uni := ut.New(enLocale, zhLocale, enLocale)

	trans, found := uni.GetTranslator("zh")
	if !found {
		return fmt.Errorf("zh translator not found")
	}
	cv.trans = trans

	return zhtrans.RegisterDefaultTranslations(cv.Validator, trans)
}

// Validate 执行校验并翻译错误信息
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.Validator.Struct(i)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if errors.As(err, &errs) && cv.trans != nil {
		for _, e := range errs {
			return fmt.Errorf("%s", e.Translate(cv.trans))
		}
	}
	return err
}
