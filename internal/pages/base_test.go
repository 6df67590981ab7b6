// internal/pages/base_test.go
package pages

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/storefront-harness/internal/browser"
	"github.com/xkilldash9x/storefront-harness/internal/browser/browsertest"
	"github.com/xkilldash9x/storefront-harness/internal/mocks"
)

func setupPage(t *testing.T) (*Base, *mocks.MockDriver) {
	t.Helper()
	f := browsertest.NewFixture(t)
	drv := browsertest.NewDriver("100")
	ec := f.Acquire(t, drv)
	return NewBase(f.Harness, ec, zaptest.NewLogger(t)), drv
}

func TestBase_NavigateTo(t *testing.T) {
	page, drv := setupPage(t)
	drv.On("Navigate", mock.Anything, "https://shop.example.test/").Return(nil).Once()
	drv.On("ExecuteScript", mock.Anything, browser.ReadyStateScript, mock.Anything).
		Run(browsertest.Result(true)).Return(nil)

	require.NoError(t, page.NavigateTo(context.Background(), "https://shop.example.test/"))
	drv.AssertExpectations(t)
}

func TestBase_WaitForPageLoad(t *testing.T) {
	page, drv := setupPage(t)
	drv.On("ExecuteScript", mock.Anything, browser.ReadyStateScript, mock.Anything).
		Run(browsertest.Result(false)).Return(nil).Once()
	drv.On("ExecuteScript", mock.Anything, browser.ReadyStateScript, mock.Anything).
		Run(browsertest.Result(true)).Return(nil)

	require.NoError(t, page.WaitForPageLoad(context.Background()))
}

func TestBase_ClickAndType(t *testing.T) {
	page, drv := setupPage(t)
	add := browser.CSS("#add-to-cart")
	qty := browser.CSS("input[name=qty]")
	drv.On("IsVisible", mock.Anything, mock.Anything).Return(true, nil)
	drv.On("IsEnabled", mock.Anything, add).Return(true, nil)
	drv.On("Click", mock.Anything, add).Return(nil).Once()
	drv.On("Clear", mock.Anything, qty).Return(nil)
	drv.On("SendKeys", mock.Anything, qty, "2").Return(nil).Once()

	ctx := context.Background()
	require.NoError(t, page.EnterText(ctx, qty, "2"))
	require.NoError(t, page.Click(ctx, add))
	drv.AssertExpectations(t)
}

func TestBase_ClickFailureIsTyped(t *testing.T) {
	page, drv := setupPage(t)
	ref := browser.CSS("#checkout")
	drv.On("IsVisible", mock.Anything, ref).Return(false, nil)
	drv.On("ExecuteScript", mock.Anything, browser.ClickScript(ref), mock.Anything).
		Return(errors.New("element not found"))

	err := page.Click(context.Background(), ref)
	var herr *browser.Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, browser.KindInteractionFailure, herr.Kind)
	assert.ErrorIs(t, err, browser.ErrElementNotClickable)
	assert.Equal(t, page.ExecutionContext(), herr.Context)
}

func TestBase_Reads(t *testing.T) {
	page, drv := setupPage(t)
	price := browser.CSS(".price")
	drv.On("IsVisible", mock.Anything, price).Return(true, nil)
	drv.On("Text", mock.Anything, price).Return("$19.99", nil)
	drv.On("Attribute", mock.Anything, price, "data-sku").Return("SKU-7", true, nil)

	ctx := context.Background()
	text, err := page.Text(ctx, price)
	require.NoError(t, err)
	assert.Equal(t, "$19.99", text)

	sku, err := page.Attribute(ctx, price, "data-sku")
	require.NoError(t, err)
	assert.Equal(t, "SKU-7", sku)
}

func TestBase_IsDisplayed(t *testing.T) {
	banner := browser.CSS(".promo-banner")

	t.Run("visible", func(t *testing.T) {
		page, drv := setupPage(t)
		drv.On("ExecuteScript", mock.Anything, browser.VisibleScript(banner), mock.Anything).
			Run(browsertest.Result(true)).Return(nil)
		assert.True(t, page.IsDisplayed(context.Background(), banner))
	})

	t.Run("absent is not an error", func(t *testing.T) {
		page, drv := setupPage(t)
		drv.On("ExecuteScript", mock.Anything, browser.VisibleScript(banner), mock.Anything).
			Run(browsertest.Result(false)).Return(nil)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		assert.False(t, page.IsDisplayed(ctx, banner))
	})
}

func TestBase_SelectByVisibleText(t *testing.T) {
	size := browser.CSS("select#size")

	t.Run("option found", func(t *testing.T) {
		page, drv := setupPage(t)
		drv.On("ExecuteScript", mock.Anything, browser.SelectByTextScript(size, "Large"), mock.Anything).
			Run(browsertest.Result(true)).Return(nil)
		require.NoError(t, page.SelectByVisibleText(context.Background(), size, "Large"))
	})

	t.Run("no such option", func(t *testing.T) {
		page, drv := setupPage(t)
		drv.On("ExecuteScript", mock.Anything, browser.SelectByTextScript(size, "XXL"), mock.Anything).
			Run(browsertest.Result(false)).Return(nil)

		err := page.SelectByVisibleText(context.Background(), size, "XXL")
		assert.Equal(t, browser.KindInteractionFailure, browser.KindOf(err))
		assert.ErrorContains(t, err, `"XXL"`)
	})

	t.Run("script error", func(t *testing.T) {
		page, drv := setupPage(t)
		drv.On("ExecuteScript", mock.Anything, browser.SelectByTextScript(size, "M"), mock.Anything).
			Return(errors.New("select element not found"))

		err := page.SelectByVisibleText(context.Background(), size, "M")
		assert.Equal(t, browser.KindInteractionFailure, browser.KindOf(err))
	})
}

func TestBase_TitleAndURL(t *testing.T) {
	page, drv := setupPage(t)
	drv.On("ExecuteScript", mock.Anything, browser.TitleScript, mock.Anything).
		Run(browsertest.Result("Your Cart")).Return(nil)
	drv.On("ExecuteScript", mock.Anything, browser.LocationScript, mock.Anything).
		Run(browsertest.Result("https://shop.example.test/cart")).Return(nil)

	ctx := context.Background()
	title, err := page.PageTitle(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Your Cart", title)

	url, err := page.CurrentURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.test/cart", url)
}

func TestBase_DismissDialogs(t *testing.T) {
	page, _ := setupPage(t)
	assert.Zero(t, page.DismissDialogs(context.Background()))
}
