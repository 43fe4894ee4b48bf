package identity

import "testing"

func assertEqual(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Fatalf("assertEqual: expected %q, got %q", want, got)
	}
}

func TestAuthorUnmappedEmpty(t *testing.T) {
	assertEqual(t, Author(nil, "", ""), "Unknown User <unknown@localhost>")
	assertEqual(t, Author(nil, "", "mycorp.com"), "Unknown User <unknown@mycorp.com>")
}

func TestAuthorIdentityMap(t *testing.T) {
	m := map[string]string{"jsmith": "my full string value"}
	assertEqual(t, Author(m, "jsmith", ""), "my full string value")
}

func TestAuthorFallback(t *testing.T) {
	assertEqual(t, Author(nil, "johnappleseed", "mycorp.com"), "johnappleseed <johnappleseed@mycorp.com>")
}

func TestCommitMessage(t *testing.T) {
	got := CommitMessage("fmt usr:{usr} rev:{rev} log:{log}", "svn log", "svn usr", 123)
	assertEqual(t, got, "fmt usr:svn usr rev:123 log:svn log")
}

func TestTimeConversions(t *testing.T) {
	cases := []struct {
		date, zone, want string
	}{
		{"2005-02-20T01:52:55.851101Z", "Etc/UTC", "1108864375 +0000"},
		{"2003-04-01T06:17:43.000000Z", "Etc/UTC", "1049177863 +0000"},
		{"2017-03-07T00:21:32.725645Z", "America/New_York", "1488846092 -0500"},
		{"2018-07-19T12:17:25.163264Z", "America/Caracas", "1532002645 -0400"},
		{"2005-12-05T03:04:25.784527Z", "Asia/Singapore", "1133751865 +0800"},
		{"2006-05-28T23:33:05.132279Z", "Europe/London", "1148859185 +0100"},
		{"2015-11-16T04:44:26.025081Z", "Europe/London", "1447649066 +0000"},
	}
	for _, c := range cases {
		got := Time(c.date, c.zone)
		assertEqual(t, got, c.want)
	}
}

func TestTimeMissingDefaultsToEpoch(t *testing.T) {
	assertEqual(t, Time("", "Etc/UTC"), "0 +0000")
}

func TestTimeNeverPanics(t *testing.T) {
	for _, input := range []string{"", "garbage", "2020-13-40T99:99:99Z"} {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Time panicked on %q: %v", input, r)
				}
			}()
			Time(input, "Etc/UTC")
		}()
	}
}
