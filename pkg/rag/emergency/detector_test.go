package emergency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantFlags  []string
		wantAdvice string
	}{
		{
			name:       "breathing difficulty goes to emergency department",
			text:       "عندي صعوبة تنفس وضرسي منفوخ",
			wantFlags:  []string{"صعوبه تنفس"},
			wantAdvice: AdviceEmergencyDepartment,
		},
		{
			name:       "swallowing in dialect",
			text:       "ما عم اقدر بلع من الوجع",
			wantFlags:  []string{"ما عم اقدر بلع"},
			wantAdvice: AdviceEmergencyDepartment,
		},
		{
			name:       "swelling and fever",
			text:       "تورّم بالخد مع حرارة",
			wantFlags:  []string{"تورم", "حراره"},
			wantAdvice: AdviceUrgentDentist,
		},
		{
			name:       "night pain",
			text:       "الوجع يوقظ من النوم",
			wantFlags:  []string{"يوقظ من النوم"},
			wantAdvice: AdviceUrgentDentist,
		},
		{
			name:       "airway wins over other flags",
			text:       "خراج كبير وضيق تنفس",
			wantFlags:  []string{"ضيق تنفس", "خراج"},
			wantAdvice: AdviceEmergencyDepartment,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Detect(tt.text)
			assert.True(t, info.IsEmergency())
			assert.Equal(t, tt.wantFlags, info.RedFlags)
			require.NotNil(t, info.Advice)
			assert.Equal(t, tt.wantAdvice, *info.Advice)
		})
	}
}

func TestDetectNoFlags(t *testing.T) {
	for _, text := range []string{"", "ضرس العقل يوجعني من البارد", "مرحبا"} {
		info := Detect(text)
		assert.False(t, info.IsEmergency(), text)
		assert.Nil(t, info.Advice, text)
		assert.Empty(t, info.RedFlags, text)
	}
}
